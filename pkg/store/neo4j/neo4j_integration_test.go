//go:build integration

package neo4j

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/influence/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// newIntegrationStore connects to the server named by NEO4J_TEST_URI and
// returns a suffix that keeps this run's vertices apart from other data.
func newIntegrationStore(t *testing.T) (*GraphStore, string) {
	t.Helper()
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}

	ctx := context.Background()
	s, err := NewGraphStore(ctx, NewGraphStoreParams{
		URI:      uri,
		User:     os.Getenv("NEO4J_TEST_USER"),
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
		Database: os.Getenv("NEO4J_TEST_DATABASE"),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	suffix := fmt.Sprintf(" #%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, err := s.run(ctx, neo4j.AccessModeWrite,
			`MATCH (n) WHERE n._key ENDS WITH $suffix DETACH DELETE n`,
			map[string]any{"suffix": suffix})
		if err != nil {
			t.Errorf("cleanup failed: %v", err)
		}
		_ = s.Close(ctx)
	})
	return s, suffix
}

func TestIntegration_UpsertIsIdempotent(t *testing.T) {
	s, suffix := newIntegrationStore(t)
	ctx := context.Background()
	key := store.Key{Label: "Donor", Attribute: "name", Value: "Acme Ltd" + suffix}

	first, created, err := s.Upsert(ctx, key)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created {
		t.Fatalf("expected first upsert to create the vertex")
	}

	second, created, err := s.Upsert(ctx, key)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Fatalf("expected second upsert to reuse the vertex")
	}
	if first != second {
		t.Fatalf("expected handle %d, got %d", first, second)
	}

	h, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok || h != first {
		t.Fatalf("expected lookup to find %d, got %d (found=%v, err=%v)", first, h, ok, err)
	}
}

func TestIntegration_AppendLogSkipsKnownFragments(t *testing.T) {
	s, suffix := newIntegrationStore(t)
	ctx := context.Background()

	h, _, err := s.Upsert(ctx, store.Key{Label: "Registered Interest", Attribute: "interest", Value: "Shares in Acme" + suffix})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	steps := []struct {
		fragment string
		changed  bool
	}{
		{"Shares in Acme Ltd", true},
		{"Shares in Acme Ltd", false},
		{"Director of Acme Ltd", true},
	}
	for _, st := range steps {
		changed, err := s.AppendLog(ctx, h, "raw_record", st.fragment, "\n")
		if err != nil {
			t.Fatalf("append %q: %v", st.fragment, err)
		}
		if changed != st.changed {
			t.Fatalf("append %q: expected changed=%v, got %v", st.fragment, st.changed, changed)
		}
	}

	props, err := s.Properties(ctx, h)
	if err != nil {
		t.Fatalf("properties: %v", err)
	}
	if got := props["raw_record"]; got != "Shares in Acme Ltd\nDirector of Acme Ltd" {
		t.Fatalf("unexpected raw_record %q", got)
	}
}

func TestIntegration_ActiveOfficesFollowsOpenTerms(t *testing.T) {
	s, suffix := newIntegrationStore(t)
	ctx := context.Background()

	upsert := func(label, attribute, value string) store.Handle {
		t.Helper()
		h, _, err := s.Upsert(ctx, store.Key{Label: label, Attribute: attribute, Value: value + suffix})
		if err != nil {
			t.Fatalf("upsert %s: %v", value, err)
		}
		return h
	}
	link := func(from, to store.Handle, edgeType string) {
		t.Helper()
		if _, err := s.Link(ctx, from, to, edgeType); err != nil {
			t.Fatalf("link %s: %v", edgeType, err)
		}
	}

	mp := upsert("Member of Parliament", "name", "Jane Doe")
	current := upsert("Elected Term", "term", "Jane Doe - 2015")
	past := upsert("Elected Term", "term", "Jane Doe - 2010")
	minister := upsert("Government Position", "name", "Minister for Housing")
	whip := upsert("Government Position", "name", "Whip")

	if err := s.SetProperties(ctx, current, map[string]any{store.LeftReasonProperty: store.StillInOffice}); err != nil {
		t.Fatalf("set properties: %v", err)
	}
	if err := s.SetProperties(ctx, past, map[string]any{store.LeftReasonProperty: "general_election"}); err != nil {
		t.Fatalf("set properties: %v", err)
	}
	link(mp, current, store.EdgeElectedFor)
	link(mp, past, store.EdgeElectedFor)
	link(current, minister, store.EdgeServedIn)
	link(past, whip, store.EdgeServedIn)

	got, err := s.ActiveOffices(ctx, mp, "Government Position")
	if err != nil {
		t.Fatalf("active offices: %v", err)
	}
	want := []string{"Minister for Housing" + suffix}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
