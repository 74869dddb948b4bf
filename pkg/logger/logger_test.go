package logger

import (
	"errors"
	"strings"
	"testing"
)

type recordingInstance struct {
	lines  []string
	closed bool
	err    error
}

func (r *recordingInstance) record(level, message string, keyvals ...any) {
	var b strings.Builder
	b.WriteString(level + " " + message)
	for _, kv := range keyvals {
		b.WriteString(" ")
		if s, ok := kv.(string); ok {
			b.WriteString(s)
		}
	}
	r.lines = append(r.lines, b.String())
}

func (r *recordingInstance) Log(m string, kv ...any)   { r.record("LOG", m, kv...) }
func (r *recordingInstance) Debug(m string, kv ...any) { r.record("DEBUG", m, kv...) }
func (r *recordingInstance) Info(m string, kv ...any)  { r.record("INFO", m, kv...) }
func (r *recordingInstance) Warn(m string, kv ...any)  { r.record("WARN", m, kv...) }
func (r *recordingInstance) Error(m string, kv ...any) { r.record("ERROR", m, kv...) }
func (r *recordingInstance) Fatal(m string, kv ...any) { r.record("FATAL", m, kv...) }
func (r *recordingInstance) Close() error {
	r.closed = true
	return r.err
}

func TestDispatchToAllInstances(t *testing.T) {
	a, b := &recordingInstance{}, &recordingInstance{}
	Init(a, b)
	defer Init()

	Info("[Pipeline] processed", "mp", "Jane Doe MP")
	Log("plain", "k", "v")

	for _, inst := range []*recordingInstance{a, b} {
		if len(inst.lines) != 2 {
			t.Fatalf("expected 2 lines, got %v", inst.lines)
		}
		if inst.lines[0] != "INFO [Pipeline] processed mp Jane Doe MP" {
			t.Fatalf("unexpected line %q", inst.lines[0])
		}
		if inst.lines[1] != "LOG plain k v" {
			t.Fatalf("keyvals must be forwarded by Log, got %q", inst.lines[1])
		}
	}
}

func TestCloseReturnsFirstError(t *testing.T) {
	a := &recordingInstance{err: errors.New("disk full")}
	b := &recordingInstance{}
	Init(a, b)
	defer Init()

	err := Close()
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected disk full error, got %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected both instances to be closed")
	}
}

func TestNoInitIsSilent(t *testing.T) {
	singleton = nil
	Info("nobody listens")
	if err := Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
