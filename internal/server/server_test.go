package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/influence/internal/queue"
	"github.com/OFFIS-RIT/influence/internal/runs"
	mid "github.com/OFFIS-RIT/influence/internal/server/middleware"
	"github.com/OFFIS-RIT/influence/pkg/graph"
	"github.com/OFFIS-RIT/influence/pkg/store/memory"

	"github.com/rabbitmq/amqp091-go"
)

type recordingPublisher struct {
	keys   []string
	bodies [][]byte
}

func (p *recordingPublisher) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	p.keys = append(p.keys, key)
	p.bodies = append(p.bodies, msg.Body)
	return nil
}

type staticRuns struct {
	run runs.Run
	err error
}

func (s staticRuns) Latest(context.Context, string) (runs.Run, error) { return s.run, s.err }

func (s staticRuns) PredictDuration(context.Context, string) (time.Duration, error) {
	return 90 * time.Second, nil
}

func newTestServer(t *testing.T) (*mid.App, http.Handler) {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	mp := graph.NewMP(s, "Jane Doe MP")
	if _, err := mp.FetchOrCreate(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := mp.LinkParty(ctx, "Labour"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	app := &mid.App{
		Store:        s,
		Queue:        &recordingPublisher{},
		Runs:         staticRuns{run: runs.Run{ID: 1, Dataset: "funding", Status: runs.StatusFinished, Processed: 3}},
		MasterAPIKey: "secret",
	}
	return app, New(app)
}

func do(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	if rec := do(h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetMp(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v0.1/getMp?name=Jane+Doe+MP", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view graph.PoliticianView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Name != "Jane Doe MP" || view.Party != "Labour" || view.Type != graph.KindMP {
		t.Fatalf("unexpected view %+v", view)
	}

	if rec := do(h, http.MethodGet, "/api/v0.1/getMp?name=Nobody", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v0.1/getMp", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostIngest(t *testing.T) {
	app, h := newTestServer(t)

	if rec := do(h, http.MethodPost, "/api/v0.1/ingest", `{}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v0.1/ingest", `{}`, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v0.1/ingest", `{"datasets":["hansard"]}`, "secret"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown dataset, got %d", rec.Code)
	}

	rec := do(h, http.MethodPost, "/api/v0.1/ingest", `{"datasets":["funding"],"message":"manual"}`, "secret")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	pub := app.Queue.(*recordingPublisher)
	if len(pub.keys) != 1 || pub.keys[0] != queue.IngestQueue {
		t.Fatalf("expected one job on %s, got %v", queue.IngestQueue, pub.keys)
	}
	job, err := queue.DecodeIngestJob(pub.bodies[0])
	if err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if len(job.Datasets) != 1 || job.Datasets[0] != "funding" || job.Message != "manual" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestGetLatestRun(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v0.1/runs/funding", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Processed           int   `json:"processed"`
		PredictedDurationMs int64 `json:"predicted_duration_ms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Processed != 3 || body.PredictedDurationMs != 90000 {
		t.Fatalf("unexpected body %+v", body)
	}

	if rec := do(h, http.MethodGet, "/api/v0.1/runs/hansard", "", "secret"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/api/v0.1/stats", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"vertices":2`) {
		t.Fatalf("unexpected stats %s", rec.Body.String())
	}
}
