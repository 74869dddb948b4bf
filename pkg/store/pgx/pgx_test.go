package pgx

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*GraphDBStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	s, err := NewGraphDBStoreWithConnection(context.Background(), mock)
	require.NoError(t, err)
	return s, mock
}

var donorKey = store.Key{Label: "Donor", Attribute: "name", Value: "Acme Ltd"}

func TestNewGraphDBStore_PingFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("database unavailable"))
	_, err = NewGraphDBStoreWithConnection(context.Background(), mock)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing vertex", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(insertVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectExec(flexibleSQLMatcher(insertLabelsSQL)).
			WithArgs(int64(7), []string{"Donor"}).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		h, created, err := s.Upsert(ctx, donorKey)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, store.Handle(7), h)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sanitizes key before lookup and insert", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(insertVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
		mock.ExpectExec(flexibleSQLMatcher(insertLabelsSQL)).
			WithArgs(int64(9), []string{"Donor"}).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		key := store.Key{Label: "Donor", Attribute: "name", Value: "Acme\x00 Ltd\xff"}
		h, created, err := s.Upsert(ctx, key)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, store.Handle(9), h)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost insert race returns the winner", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(insertVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

		h, created, err := s.Upsert(ctx, donorKey)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, store.Handle(11), h)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost insert race without winner is an error", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(insertVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, _, err := s.Upsert(ctx, donorKey)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns existing vertex", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

		h, created, err := s.Upsert(ctx, donorKey)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, store.Handle(7), h)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection loss is unavailable", func(t *testing.T) {
		s, mock := newMockStore(t)

		connErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnError(connErr)

		_, _, err := s.Upsert(ctx, donorKey)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is not unavailable", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectQuery(flexibleSQLMatcher(lookupVertexSQL)).
			WithArgs("Donor", "name", "Acme Ltd").
			WillReturnError(errors.New("syntax error"))

		_, _, err := s.Upsert(ctx, donorKey)
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrUnavailable)
	})
}

func TestMerge(t *testing.T) {
	s, mock := newMockStore(t)
	key := store.Key{Label: "Registered Funding", Attribute: "summary", Value: "Jane Doe MP - Acme Ltd - 1 May 2015 - £1,000"}

	mock.ExpectQuery(flexibleSQLMatcher(mergeVertexSQL)).
		WithArgs(key.Label, key.Attribute, key.Value).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(flexibleSQLMatcher(insertLabelsSQL)).
		WithArgs(int64(3), []string{key.Label}).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	h, err := s.Merge(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, store.Handle(3), h)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetProperties(t *testing.T) {
	ctx := context.Background()

	t.Run("merges sanitized json", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(flexibleSQLMatcher(updatePropertiesSQL)).
			WithArgs(int64(7), `{"company_reg":null,"donor_type":"Company"}`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := s.SetProperties(ctx, 7, map[string]any{"donor_type": "Compa\x00ny", "company_reg": nil})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing vertex", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectExec(flexibleSQLMatcher(updatePropertiesSQL)).
			WithArgs(int64(9), `{"a":1}`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.SetProperties(ctx, 9, map[string]any{"a": 1})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestLinkAndDates(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(flexibleSQLMatcher(insertEdgeSQL)).
		WithArgs(int64(1), int64(2), "FUNDING").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(flexibleSQLMatcher(upsertEdgeDateSQL)).
		WithArgs(int64(11), "RECEIVED", "1 May 2015").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(flexibleSQLMatcher(selectEdgeDatesSQL)).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"role", "date"}).AddRow("RECEIVED", "1 May 2015"))

	id, err := s.Link(ctx, 1, 2, "FUNDING")
	require.NoError(t, err)
	assert.Equal(t, store.EdgeID(11), id)

	require.NoError(t, s.SetEdgeDate(ctx, id, "RECEIVED", "1 May 2015"))

	dates, err := s.EdgeDates(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"RECEIVED": "1 May 2015"}, dates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendLog(t *testing.T) {
	ctx := context.Background()
	const sep = "\n---\n\n"

	t.Run("appends new fragment", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(flexibleSQLMatcher(selectLogSQL)).
			WithArgs(int64(5), "raw_record").
			WillReturnRows(pgxmock.NewRows([]string{"raw_record"}).AddRow("first"))
		mock.ExpectExec(flexibleSQLMatcher(updateLogSQL)).
			WithArgs(int64(5), "raw_record", "first"+sep+"second").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		changed, err := s.AppendLog(ctx, 5, "raw_record", "second", sep)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips duplicate fragment", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(flexibleSQLMatcher(selectLogSQL)).
			WithArgs(int64(5), "raw_record").
			WillReturnRows(pgxmock.NewRows([]string{"raw_record"}).AddRow("first" + sep + "second"))
		mock.ExpectRollback()

		changed, err := s.AppendLog(ctx, 5, "raw_record", "second", sep)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestActiveOffices(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(flexibleSQLMatcher(activeOfficesSQL)).
		WithArgs(int64(1), "Government Position",
			[]string{store.EdgeElectedFor, store.EdgeRepresentativeFor},
			store.EdgeServedIn, store.LeftReasonProperty, store.StillInOffice).
		WillReturnRows(pgxmock.NewRows([]string{"key_value"}))

	offices, err := s.ActiveOffices(context.Background(), 1, "Government Position")
	require.NoError(t, err)
	assert.NotNil(t, offices)
	assert.Empty(t, offices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(flexibleSQLMatcher(countsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"vertices", "edges"}).AddRow(int64(4), int64(3)))

	st, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Vertices: 4, Edges: 3}, st)
}
