package util

import (
	"reflect"
	"testing"
	"time"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("BATCH_LIMIT", "25")
	if got := GetEnvInt("BATCH_LIMIT", 1); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	t.Setenv("BATCH_LIMIT", "many")
	if got := GetEnvInt("BATCH_LIMIT", 1); got != 1 {
		t.Fatalf("expected fallback 1, got %d", got)
	}
	if got := GetEnvInt("UNSET_LIMIT_FOR_TEST", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("DEBUG", "true")
	if !GetEnvBool("DEBUG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("DEBUG", "yes")
	if GetEnvBool("DEBUG", false) {
		t.Fatal("expected default for unrecognized value")
	}
}

func TestGetEnvString_EmptyUsesDefault(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "")
	if got := GetEnvString("GRAPH_BACKEND", "postgres"); got != "postgres" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("NER_ALIASES", "Mirror Group Newspapers | News UK, Ltd||")
	want := []string{"Mirror Group Newspapers", "News UK, Ltd"}
	if got := GetEnvList("NER_ALIASES"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	t.Setenv("NER_ALIASES", "  ")
	if got := GetEnvList("NER_ALIASES"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("RUN_LOCK_TTL", "90s")
	if got := GetEnvDuration("RUN_LOCK_TTL", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	t.Setenv("RUN_LOCK_TTL", "120")
	if got := GetEnvDuration("RUN_LOCK_TTL", time.Minute); got != 2*time.Minute {
		t.Fatalf("expected bare number as seconds, got %s", got)
	}
	t.Setenv("RUN_LOCK_TTL", "soon")
	if got := GetEnvDuration("RUN_LOCK_TTL", time.Minute); got != time.Minute {
		t.Fatalf("expected default, got %s", got)
	}
}
