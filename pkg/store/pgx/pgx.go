// Package pgx stores the property graph in PostgreSQL. Vertices, their
// labels, edges and edge dates live in four tables created by the
// migrations in internal/migrations.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/OFFIS-RIT/influence/internal/util"
	"github.com/OFFIS-RIT/influence/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	Ping(ctx context.Context) error
}

// GraphDBStore implements store.Store on PostgreSQL.
type GraphDBStore struct {
	conn  pgxIConn
	close func()
}

// GraphDBStoreOption configures a GraphDBStore.
type GraphDBStoreOption func(*GraphDBStore)

// WithCloser registers a function run by Close, typically pgxpool.Pool.Close.
func WithCloser(fn func()) GraphDBStoreOption {
	return func(s *GraphDBStore) {
		s.close = fn
	}
}

// NewGraphDBStoreWithConnection creates a store on an existing connection
// or pool. The connection is pinged once.
func NewGraphDBStoreWithConnection(
	ctx context.Context,
	conn pgxIConn,
	opts ...GraphDBStoreOption,
) (*GraphDBStore, error) {
	if err := conn.Ping(ctx); err != nil {
		return nil, store.Unavailable(fmt.Errorf("failed to ping database: %w", err))
	}
	s := &GraphDBStore{conn: conn}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

const (
	lookupVertexSQL = `
		SELECT v.id FROM graph_vertices v
		JOIN graph_labels l ON l.vertex_id = v.id
		WHERE l.label = $1 AND v.key_attr = $2 AND v.key_value = $3
		ORDER BY v.id
		LIMIT 1`

	insertVertexSQL = `
		INSERT INTO graph_vertices (label, key_attr, key_value, properties)
		VALUES ($1, $2, $3, jsonb_build_object($2::text, $3::text))
		ON CONFLICT (label, key_attr, key_value) DO NOTHING
		RETURNING id`

	mergeVertexSQL = `
		INSERT INTO graph_vertices (label, key_attr, key_value, properties)
		VALUES ($1, $2, $3, jsonb_build_object($2::text, $3::text))
		ON CONFLICT (label, key_attr, key_value) DO UPDATE SET updated_at = now()
		RETURNING id`

	insertLabelsSQL = `
		INSERT INTO graph_labels (vertex_id, label)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING`

	selectLabelsSQL = `
		SELECT label FROM graph_labels WHERE vertex_id = $1 ORDER BY label`

	selectPropertiesSQL = `
		SELECT properties FROM graph_vertices WHERE id = $1`

	updatePropertiesSQL = `
		UPDATE graph_vertices
		SET properties = properties || ($2::jsonb - key_attr), updated_at = now()
		WHERE id = $1`

	selectLogSQL = `
		SELECT COALESCE(properties ->> $2, '') FROM graph_vertices WHERE id = $1 FOR UPDATE`

	updateLogSQL = `
		UPDATE graph_vertices
		SET properties = jsonb_set(properties, ARRAY[$2::text], to_jsonb($3::text)), updated_at = now()
		WHERE id = $1`

	insertEdgeSQL = `
		INSERT INTO graph_edges (source_id, target_id, edge_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id, target_id, edge_type) DO UPDATE SET edge_type = EXCLUDED.edge_type
		RETURNING id`

	upsertEdgeDateSQL = `
		INSERT INTO graph_edge_dates (edge_id, role, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (edge_id, role) DO UPDATE SET date = EXCLUDED.date`

	selectEdgeDatesSQL = `
		SELECT role, date FROM graph_edge_dates WHERE edge_id = $1`

	activeOfficesSQL = `
		SELECT DISTINCT o.key_value
		FROM graph_edges te
		JOIN graph_vertices t ON t.id = CASE WHEN te.source_id = $1 THEN te.target_id ELSE te.source_id END
		JOIN graph_edges se ON se.edge_type = $4 AND (se.source_id = t.id OR se.target_id = t.id)
		JOIN graph_vertices o ON o.id = CASE WHEN se.source_id = t.id THEN se.target_id ELSE se.source_id END
		JOIN graph_labels ol ON ol.vertex_id = o.id AND ol.label = $2
		WHERE (te.source_id = $1 OR te.target_id = $1)
		AND te.edge_type = ANY($3::text[])
		AND t.properties ->> $5 = $6
		ORDER BY o.key_value`

	neighboursSQL = `
		SELECT v.key_value
		FROM graph_edges e
		JOIN graph_vertices v ON v.id = e.target_id
		WHERE e.source_id = $1 AND e.edge_type = $2
		AND ($3 = '' OR EXISTS (SELECT 1 FROM graph_labels l WHERE l.vertex_id = v.id AND l.label = $3))
		ORDER BY e.id`

	countsSQL = `
		SELECT (SELECT count(*) FROM graph_vertices), (SELECT count(*) FROM graph_edges)`
)

// classify maps driver errors onto the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgxv5.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23503":
			return fmt.Errorf("%w: %w", store.ErrNotFound, err)
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code == "57P01"):
			return store.Unavailable(err)
		}
		return err
	}

	var netErr net.Error
	var connectErr *pgconn.ConnectError
	if errors.As(err, &netErr) ||
		errors.As(err, &connectErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		pgconn.Timeout(err) {
		return store.Unavailable(err)
	}
	return err
}

// sanitizeKey makes lookups, inserts and merges bind the same value.
func sanitizeKey(key store.Key) store.Key {
	key.Value = util.SanitizePostgresText(key.Value)
	return key
}

func (s *GraphDBStore) Lookup(ctx context.Context, key store.Key) (store.Handle, bool, error) {
	key = sanitizeKey(key)
	var id int64
	err := s.conn.QueryRow(ctx, lookupVertexSQL, key.Label, key.Attribute, key.Value).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify(fmt.Errorf("lookup %s: %w", key, err))
	}
	return store.Handle(id), true, nil
}

func (s *GraphDBStore) Upsert(ctx context.Context, key store.Key) (store.Handle, bool, error) {
	key = sanitizeKey(key)
	h, ok, err := s.Lookup(ctx, key)
	if err != nil || ok {
		return h, false, err
	}

	var id int64
	err = s.conn.QueryRow(ctx, insertVertexSQL, key.Label, key.Attribute, key.Value).Scan(&id)
	if errors.Is(err, pgxv5.ErrNoRows) {
		// lost a race against a concurrent insert of the same key
		h, ok, err := s.Lookup(ctx, key)
		if err == nil && !ok {
			err = fmt.Errorf("insert %s: conflicting vertex not found", key)
		}
		return h, false, err
	}
	if err != nil {
		return 0, false, classify(fmt.Errorf("insert %s: %w", key, err))
	}

	if err := s.AddLabels(ctx, store.Handle(id), key.Label); err != nil {
		return 0, false, err
	}
	return store.Handle(id), true, nil
}

func (s *GraphDBStore) Merge(ctx context.Context, key store.Key) (store.Handle, error) {
	key = sanitizeKey(key)
	var id int64
	err := s.conn.QueryRow(ctx, mergeVertexSQL, key.Label, key.Attribute, key.Value).Scan(&id)
	if err != nil {
		return 0, classify(fmt.Errorf("merge %s: %w", key, err))
	}
	if err := s.AddLabels(ctx, store.Handle(id), key.Label); err != nil {
		return 0, err
	}
	return store.Handle(id), nil
}

func (s *GraphDBStore) Properties(ctx context.Context, h store.Handle) (map[string]any, error) {
	var props map[string]any
	if err := s.conn.QueryRow(ctx, selectPropertiesSQL, int64(h)).Scan(&props); err != nil {
		return nil, classify(fmt.Errorf("properties of vertex %d: %w", h, err))
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

func (s *GraphDBStore) SetProperties(ctx context.Context, h store.Handle, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	payload, err := json.Marshal(util.SanitizeProperties(props))
	if err != nil {
		return fmt.Errorf("failed to encode properties: %w", err)
	}
	tag, err := s.conn.Exec(ctx, updatePropertiesSQL, int64(h), string(payload))
	if err != nil {
		return classify(fmt.Errorf("update vertex %d: %w", h, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	return nil
}

func (s *GraphDBStore) AddLabels(ctx context.Context, h store.Handle, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, err := s.conn.Exec(ctx, insertLabelsSQL, int64(h), labels); err != nil {
		return classify(fmt.Errorf("label vertex %d: %w", h, err))
	}
	return nil
}

func (s *GraphDBStore) Labels(ctx context.Context, h store.Handle) ([]string, error) {
	rows, err := s.conn.Query(ctx, selectLabelsSQL, int64(h))
	if err != nil {
		return nil, classify(fmt.Errorf("labels of vertex %d: %w", h, err))
	}
	labels, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	return labels, nil
}

func (s *GraphDBStore) Link(ctx context.Context, from, to store.Handle, edgeType string) (store.EdgeID, error) {
	var id int64
	if err := s.conn.QueryRow(ctx, insertEdgeSQL, int64(from), int64(to), edgeType).Scan(&id); err != nil {
		return 0, classify(fmt.Errorf("link %d -[%s]-> %d: %w", from, edgeType, to, err))
	}
	return store.EdgeID(id), nil
}

func (s *GraphDBStore) SetEdgeDate(ctx context.Context, edge store.EdgeID, role, date string) error {
	if _, err := s.conn.Exec(ctx, upsertEdgeDateSQL, int64(edge), role, util.SanitizePostgresText(date)); err != nil {
		return classify(fmt.Errorf("date edge %d: %w", edge, err))
	}
	return nil
}

func (s *GraphDBStore) EdgeDates(ctx context.Context, edge store.EdgeID) (map[string]string, error) {
	rows, err := s.conn.Query(ctx, selectEdgeDatesSQL, int64(edge))
	if err != nil {
		return nil, classify(fmt.Errorf("dates of edge %d: %w", edge, err))
	}
	defer rows.Close()

	dates := make(map[string]string)
	for rows.Next() {
		var role, date string
		if err := rows.Scan(&role, &date); err != nil {
			return nil, classify(err)
		}
		dates[role] = date
	}
	return dates, classify(rows.Err())
}

func (s *GraphDBStore) AppendLog(ctx context.Context, h store.Handle, property, fragment, sep string) (bool, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return false, classify(fmt.Errorf("begin append: %w", err))
	}

	var existing string
	if err := tx.QueryRow(ctx, selectLogSQL, int64(h), property).Scan(&existing); err != nil {
		_ = tx.Rollback(ctx)
		return false, classify(fmt.Errorf("read %s of vertex %d: %w", property, h, err))
	}

	next, changed := store.AppendFragment(existing, util.SanitizePostgresText(fragment), sep)
	if !changed {
		_ = tx.Rollback(ctx)
		return false, nil
	}

	if _, err := tx.Exec(ctx, updateLogSQL, int64(h), property, next); err != nil {
		_ = tx.Rollback(ctx)
		return false, classify(fmt.Errorf("append %s of vertex %d: %w", property, h, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return false, classify(fmt.Errorf("commit append: %w", err))
	}
	return true, nil
}

func (s *GraphDBStore) ActiveOffices(ctx context.Context, politician store.Handle, officeLabel string) ([]string, error) {
	rows, err := s.conn.Query(ctx, activeOfficesSQL,
		int64(politician),
		officeLabel,
		[]string{store.EdgeElectedFor, store.EdgeRepresentativeFor},
		store.EdgeServedIn,
		store.LeftReasonProperty,
		store.StillInOffice,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("active offices of %d: %w", politician, err))
	}
	offices, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	if offices == nil {
		offices = []string{}
	}
	return offices, nil
}

func (s *GraphDBStore) Neighbours(ctx context.Context, h store.Handle, edgeType, label string) ([]string, error) {
	rows, err := s.conn.Query(ctx, neighboursSQL, int64(h), edgeType, label)
	if err != nil {
		return nil, classify(fmt.Errorf("neighbours of %d: %w", h, err))
	}
	out, err := pgxv5.CollectRows(rows, pgxv5.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *GraphDBStore) Counts(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	if err := s.conn.QueryRow(ctx, countsSQL).Scan(&st.Vertices, &st.Edges); err != nil {
		return store.Stats{}, classify(fmt.Errorf("count graph: %w", err))
	}
	return st, nil
}

func (s *GraphDBStore) Close(context.Context) error {
	if s.close != nil {
		s.close()
	}
	return nil
}

var _ store.Store = (*GraphDBStore)(nil)
