package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookstitch/internal/config"
	"bookstitch/internal/pipeline"
)

func newTestServer(t *testing.T, apiKey string) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Load()
	cfg.APIKey = apiKey
	cfg.UseBrowser = false
	// Workers are never started: submitted runs stay queued, which is all
	// these handler tests need.
	orch := pipeline.NewOrchestrator(cfg, pipeline.NewRunner(cfg, log), log)
	return NewServer(orch, log, cfg), orch
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateRunRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	body := strings.NewReader(`{"url":"https://example.com/docs"}`)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", body))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", rec.Code)
	}

	body = strings.NewReader(`{"url":"https://example.com/docs"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", body)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad-key status = %d, want 401", rec.Code)
	}
}

func TestCreateRunAndPollStatus(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"url":"https://example.com/docs","strategy":"sitemap"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		RunID   string `json:"run_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.RunID == "" {
		t.Fatal("empty run_id")
	}

	statusReq := httptest.NewRequest(http.MethodGet, created.PollURL, nil)
	statusReq.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, statusReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var status struct {
		Status   string `json:"status"`
		Strategy string `json:"strategy"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != string(pipeline.StatusQueued) {
		t.Errorf("run status = %q, want queued", status.Status)
	}
	if status.Strategy != "sitemap" {
		t.Errorf("strategy = %q", status.Strategy)
	}
}

func TestCreateRunRejectsBadURL(t *testing.T) {
	srv, _ := newTestServer(t, "")

	for _, body := range []string{`{}`, `{"url":"not a url"}`, `{"url":"ftp://example.com"}`} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestRunDocumentLifecycle(t *testing.T) {
	srv, orch := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing/document", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing run status = %d, want 404", rec.Code)
	}

	run := pipeline.NewRun("https://example.com/docs", "auto")
	if err := orch.Submit(run); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/document", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("incomplete run status = %d, want 409", rec.Code)
	}

	run.SetDocument("# Example\n\nContent.\n")
	run.SetStatus(pipeline.StatusCompleted, "done")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/document", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("completed run status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "# Example") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
