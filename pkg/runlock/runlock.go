// Package runlock guarantees that at most one pipeline run per dataset is
// active across workers. A run holds an expiring row in run_locks and keeps
// extending it while it works; when renewal fails the run context is
// cancelled with ErrLost as cause.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("dataset run already in progress")
	ErrLost = errors.New("dataset run lock lost")
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Locker struct {
	db dbConn
}

// Options tune lock lifetime and waiting.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	// Wait polls until the lock is free instead of returning ErrBusy.
	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	// Holder names the worker in the lock row, e.g. its hostname.
	Holder string
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = time.Second
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

// Run is a held dataset lock. Its Context is cancelled on Release or when
// the lock cannot be renewed.
type Run struct {
	Dataset string
	Token   string
	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(db dbConn) *Locker {
	return &Locker{db: db}
}

// Do runs fn while holding the lock of dataset.
func (l *Locker) Do(ctx context.Context, dataset string, opts Options, fn func(ctx context.Context) error) error {
	run, err := l.Acquire(ctx, dataset, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := run.Release(context.Background()); err != nil {
			logger.Warn("[RunLock] Failed to release lock", "dataset", dataset, "err", err)
		}
	}()

	err = fn(run.Context)
	if cause := context.Cause(run.Context); errors.Is(cause, ErrLost) && err != nil {
		return fmt.Errorf("%w: %w", ErrLost, err)
	}
	return err
}

// Acquire takes the lock of dataset. Without opts.Wait a held lock yields
// ErrBusy.
func (l *Locker) Acquire(ctx context.Context, dataset string, opts Options) (*Run, error) {
	if dataset == "" {
		return nil, errors.New("run lock dataset is empty")
	}
	opts = opts.withDefaults()
	ttlMs := opts.TTL.Milliseconds()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := id
	if opts.Holder != "" {
		token = opts.Holder + ":" + id
	}

	for {
		ok, err := l.tryAcquire(ctx, dataset, token, ttlMs)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock %s: %w", dataset, err)
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		logger.Debug("[RunLock] Waiting for dataset", "dataset", dataset)
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	r := &Run{
		Dataset: dataset,
		Token:   token,
		Context: runCtx,
		locker:  l,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	go r.renewLoop(opts.RenewEvery, ttlMs)

	logger.Info("[RunLock] Acquired", "dataset", dataset, "token", token)
	return r, nil
}

func (l *Locker) tryAcquire(ctx context.Context, dataset, token string, ttlMs int64) (bool, error) {
	var got string
	err := l.db.QueryRow(ctx, tryAcquireSQL, dataset, token, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Release stops renewal and deletes the lock row if it is still ours.
func (r *Run) Release(ctx context.Context) error {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.cancel(context.Canceled)
	})

	_, err := r.locker.db.Exec(ctx, releaseSQL, r.Dataset, r.Token)
	return err
}

func (r *Run) renewLoop(every time.Duration, ttlMs int64) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.Context.Done():
			return
		case <-t.C:
			if err := r.renew(ttlMs); err != nil {
				logger.Error("[RunLock] Lost lock", "dataset", r.Dataset, "err", err)
				r.cancel(fmt.Errorf("%w: %w", ErrLost, err))
				return
			}
		}
	}
}

func (r *Run) renew(ttlMs int64) error {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			if err := sleepWithJitter(r.Context, 200*time.Millisecond, 0); err != nil {
				return err
			}
		}
		ctx, cancel := context.WithTimeout(r.Context, 15*time.Second)
		var got string
		err := r.locker.db.QueryRow(ctx, renewSQL, r.Dataset, r.Token, ttlMs).Scan(&got)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		lastErr = err
	}
	return lastErr
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO run_locks (dataset, holder, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (dataset) DO UPDATE
SET holder     = EXCLUDED.holder,
    expires_at = EXCLUDED.expires_at
WHERE run_locks.expires_at < now()
   OR run_locks.holder = EXCLUDED.holder
RETURNING dataset;
`

const renewSQL = `
UPDATE run_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE dataset = $1 AND holder = $2
RETURNING dataset;
`

const releaseSQL = `
DELETE FROM run_locks
WHERE dataset = $1 AND holder = $2;
`
