package ai

import "testing"

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder
	r.Record(ModelMetrics{InputTokens: 100, OutputTokens: 20, TotalTokens: 120, DurationMs: 500})
	r.Record(ModelMetrics{InputTokens: 50, OutputTokens: 30, TotalTokens: 80, DurationMs: 500})

	m := r.GetMetrics()
	if m.Requests != 2 {
		t.Fatalf("expected 2 requests, got %d", m.Requests)
	}
	if m.TotalTokens != 200 || m.DurationMs != 1000 {
		t.Fatalf("unexpected totals: %+v", m)
	}
	if m.TokenPerSecond != 200 {
		t.Fatalf("expected 200 tokens/s, got %v", m.TokenPerSecond)
	}

	r.ResetMetrics()
	if got := r.GetMetrics(); got != (ModelMetrics{}) {
		t.Fatalf("expected zero metrics after reset, got %+v", got)
	}
}
