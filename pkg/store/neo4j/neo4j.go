// Package neo4j stores the property graph in Neo4j. Store labels become
// node labels, edge types relationship types and edge date roles
// relationship properties.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// keyProperty mirrors the primary value of every node so generic reads do
// not need to know the primary attribute.
const keyProperty = "_key"

// GraphStore implements store.Store on a Neo4j database.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGraphStoreParams configures the connection.
type NewGraphStoreParams struct {
	URI      string
	User     string
	Password string
	Database string
}

// NewGraphStore connects to Neo4j and verifies connectivity.
func NewGraphStore(ctx context.Context, params NewGraphStoreParams) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.User, params.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, store.Unavailable(fmt.Errorf("failed to connect to neo4j: %w", err))
	}
	return &GraphStore{driver: driver, database: params.Database}, nil
}

// quote escapes a label, relationship type or property key for Cypher.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return store.Unavailable(err)
	}
	return err
}

func (s *GraphStore) run(
	ctx context.Context,
	mode neo4j.AccessMode,
	query string,
	params map[string]any,
) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, classify(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (s *GraphStore) single(
	ctx context.Context,
	mode neo4j.AccessMode,
	query string,
	params map[string]any,
) (*neo4j.Record, bool, error) {
	records, err := s.run(ctx, mode, query, params)
	if err != nil || len(records) == 0 {
		return nil, false, err
	}
	return records[0], true, nil
}

func lookupQuery(key store.Key) string {
	return fmt.Sprintf(`
		MATCH (n:%s {%s: $value})
		RETURN id(n) AS id
		ORDER BY id
		LIMIT 1`, quote(key.Label), quote(key.Attribute))
}

func mergeQuery(key store.Key) string {
	return fmt.Sprintf(`
		MERGE (n:%s {%s: $value})
		ON CREATE SET n.%s = $value
		RETURN id(n) AS id`, quote(key.Label), quote(key.Attribute), keyProperty)
}

func linkQuery(edgeType string) string {
	return fmt.Sprintf(`
		MATCH (a), (b)
		WHERE id(a) = $from AND id(b) = $to
		MERGE (a)-[r:%s]->(b)
		RETURN id(r) AS id`, quote(edgeType))
}

func activeOfficesQuery(officeLabel string) string {
	return fmt.Sprintf(`
		MATCH (p) WHERE id(p) = $id
		MATCH (p)-[:%s|%s]-(t)
		WHERE t.%s = $reason
		MATCH (t)-[:%s]-(o:%s)
		RETURN DISTINCT o.%s AS name
		ORDER BY name`,
		store.EdgeElectedFor, store.EdgeRepresentativeFor,
		store.LeftReasonProperty,
		store.EdgeServedIn, quote(officeLabel),
		keyProperty,
	)
}

func neighboursQuery(edgeType, label string) string {
	target := "(m)"
	if label != "" {
		target = fmt.Sprintf("(m:%s)", quote(label))
	}
	return fmt.Sprintf(`
		MATCH (n)-[r:%s]->%s
		WHERE id(n) = $id
		RETURN m.%s AS name
		ORDER BY id(r)`, quote(edgeType), target, keyProperty)
}

func (s *GraphStore) id(record *neo4j.Record) (int64, error) {
	id, _, err := neo4j.GetRecordValue[int64](record, "id")
	return id, err
}

func (s *GraphStore) Lookup(ctx context.Context, key store.Key) (store.Handle, bool, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeRead, lookupQuery(key), map[string]any{"value": key.Value})
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := s.id(rec)
	if err != nil {
		return 0, false, err
	}
	return store.Handle(id), true, nil
}

func (s *GraphStore) Upsert(ctx context.Context, key store.Key) (store.Handle, bool, error) {
	h, ok, err := s.Lookup(ctx, key)
	if err != nil || ok {
		return h, false, err
	}
	h, err = s.Merge(ctx, key)
	return h, err == nil, err
}

func (s *GraphStore) Merge(ctx context.Context, key store.Key) (store.Handle, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeWrite, mergeQuery(key), map[string]any{"value": key.Value})
	if err != nil {
		return 0, fmt.Errorf("merge %s: %w", key, err)
	}
	if !ok {
		return 0, fmt.Errorf("merge %s returned no node", key)
	}
	id, err := s.id(rec)
	return store.Handle(id), err
}

func (s *GraphStore) Properties(ctx context.Context, h store.Handle) (map[string]any, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeRead,
		`MATCH (n) WHERE id(n) = $id RETURN properties(n) AS props`,
		map[string]any{"id": int64(h)})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	props, _, err := neo4j.GetRecordValue[map[string]any](rec, "props")
	if err != nil {
		return nil, err
	}
	delete(props, keyProperty)
	return props, nil
}

func (s *GraphStore) SetProperties(ctx context.Context, h store.Handle, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	clean := make(map[string]any, len(props))
	for k, v := range props {
		if k == keyProperty {
			continue
		}
		clean[k] = v
	}
	_, ok, err := s.single(ctx, neo4j.AccessModeWrite,
		`MATCH (n) WHERE id(n) = $id SET n += $props RETURN id(n) AS id`,
		map[string]any{"id": int64(h), "props": clean})
	if err != nil {
		return fmt.Errorf("update vertex %d: %w", h, err)
	}
	if !ok {
		return fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	return nil
}

func (s *GraphStore) AddLabels(ctx context.Context, h store.Handle, labels ...string) error {
	if len(labels) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(labels))
	for _, l := range labels {
		quoted = append(quoted, quote(l))
	}
	query := fmt.Sprintf(`MATCH (n) WHERE id(n) = $id SET n:%s RETURN id(n) AS id`, strings.Join(quoted, ":"))
	_, ok, err := s.single(ctx, neo4j.AccessModeWrite, query, map[string]any{"id": int64(h)})
	if err != nil {
		return fmt.Errorf("label vertex %d: %w", h, err)
	}
	if !ok {
		return fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	return nil
}

func (s *GraphStore) Labels(ctx context.Context, h store.Handle) ([]string, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeRead,
		`MATCH (n) WHERE id(n) = $id RETURN labels(n) AS labels`,
		map[string]any{"id": int64(h)})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
	}
	raw, _, err := neo4j.GetRecordValue[[]any](rec, "labels")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(raw))
	for _, l := range raw {
		if str, ok := l.(string); ok {
			labels = append(labels, str)
		}
	}
	sort.Strings(labels)
	return labels, nil
}

func (s *GraphStore) Link(ctx context.Context, from, to store.Handle, edgeType string) (store.EdgeID, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeWrite, linkQuery(edgeType),
		map[string]any{"from": int64(from), "to": int64(to)})
	if err != nil {
		return 0, fmt.Errorf("link %d -[%s]-> %d: %w", from, edgeType, to, err)
	}
	if !ok {
		return 0, fmt.Errorf("link %d -[%s]-> %d: %w", from, edgeType, to, store.ErrNotFound)
	}
	id, err := s.id(rec)
	return store.EdgeID(id), err
}

func (s *GraphStore) SetEdgeDate(ctx context.Context, edge store.EdgeID, role, date string) error {
	_, ok, err := s.single(ctx, neo4j.AccessModeWrite,
		`MATCH ()-[r]->() WHERE id(r) = $id SET r += $dates RETURN id(r) AS id`,
		map[string]any{"id": int64(edge), "dates": map[string]any{role: date}})
	if err != nil {
		return fmt.Errorf("date edge %d: %w", edge, err)
	}
	if !ok {
		return fmt.Errorf("edge %d: %w", edge, store.ErrNotFound)
	}
	return nil
}

func (s *GraphStore) EdgeDates(ctx context.Context, edge store.EdgeID) (map[string]string, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeRead,
		`MATCH ()-[r]->() WHERE id(r) = $id RETURN properties(r) AS props`,
		map[string]any{"id": int64(edge)})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("edge %d: %w", edge, store.ErrNotFound)
	}
	props, _, err := neo4j.GetRecordValue[map[string]any](rec, "props")
	if err != nil {
		return nil, err
	}
	dates := make(map[string]string, len(props))
	for k, v := range props {
		if str, ok := v.(string); ok {
			dates[k] = str
		}
	}
	return dates, nil
}

func (s *GraphStore) AppendLog(ctx context.Context, h store.Handle, property, fragment, sep string) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	changed, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			`MATCH (n) WHERE id(n) = $id RETURN coalesce(n[$prop], '') AS existing`,
			map[string]any{"id": int64(h), "prop": property})
		if err != nil {
			return false, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return false, fmt.Errorf("vertex %d: %w", h, store.ErrNotFound)
		}
		existing, _, err := neo4j.GetRecordValue[string](rec, "existing")
		if err != nil {
			return false, err
		}

		next, changed := store.AppendFragment(existing, fragment, sep)
		if !changed {
			return false, nil
		}
		_, err = tx.Run(ctx,
			`MATCH (n) WHERE id(n) = $id SET n += $props`,
			map[string]any{"id": int64(h), "props": map[string]any{property: next}})
		return err == nil, err
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		return false, classify(fmt.Errorf("append %s of vertex %d: %w", property, h, err))
	}
	return changed.(bool), nil
}

func (s *GraphStore) names(ctx context.Context, query string, params map[string]any) ([]string, error) {
	records, err := s.run(ctx, neo4j.AccessModeRead, query, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		name, isNil, err := neo4j.GetRecordValue[string](rec, "name")
		if err != nil || isNil {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *GraphStore) ActiveOffices(ctx context.Context, politician store.Handle, officeLabel string) ([]string, error) {
	return s.names(ctx, activeOfficesQuery(officeLabel),
		map[string]any{"id": int64(politician), "reason": store.StillInOffice})
}

func (s *GraphStore) Neighbours(ctx context.Context, h store.Handle, edgeType, label string) ([]string, error) {
	return s.names(ctx, neighboursQuery(edgeType, label), map[string]any{"id": int64(h)})
}

func (s *GraphStore) Counts(ctx context.Context) (store.Stats, error) {
	rec, ok, err := s.single(ctx, neo4j.AccessModeRead, `
		CALL { MATCH (n) RETURN count(n) AS vertices }
		CALL { MATCH ()-[r]->() RETURN count(r) AS edges }
		RETURN vertices, edges`, nil)
	if err != nil || !ok {
		return store.Stats{}, err
	}
	v, _, err := neo4j.GetRecordValue[int64](rec, "vertices")
	if err != nil {
		return store.Stats{}, err
	}
	e, _, err := neo4j.GetRecordValue[int64](rec, "edges")
	if err != nil {
		return store.Stats{}, err
	}
	return store.Stats{Vertices: v, Edges: e}, nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

var _ store.Store = (*GraphStore)(nil)
