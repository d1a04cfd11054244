package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/config"
	"github.com/SiddharthSanch/product-discoverer/internal/database"
	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/probe"
	"github.com/SiddharthSanch/product-discoverer/internal/report"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *config.Config) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.OutputDir = t.TempDir()

	base := []ServerOption{
		WithLauncher(func(ctx context.Context, jobs []*model.CrawlJob) {}),
	}
	return New(cfg, append(base, opts...)...), cfg
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// TestHandleCrawl tests batch acceptance and pre-validation.
func TestHandleCrawl(t *testing.T) {
	t.Parallel()

	t.Run("accepts reachable domains and launches jobs", func(t *testing.T) {
		t.Parallel()

		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer upstream.Close()

		launched := make(chan []*model.CrawlJob, 1)
		s, _ := newTestServer(t,
			WithChecker(probe.NewChecker(probe.WithHTTPClient(upstream.Client()))),
			WithLauncher(func(ctx context.Context, jobs []*model.CrawlJob) {
				launched <- jobs
			}),
		)

		w := doRequest(s, http.MethodPost, "/crawl", `{"domains":["`+upstream.URL+`"]}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Jobs []struct {
				ID     string `json:"id"`
				Domain string `json:"domain"`
			} `json:"jobs"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if len(resp.Jobs) != 1 || resp.Jobs[0].ID == "" {
			t.Fatalf("response jobs = %+v, want one job with an ID", resp.Jobs)
		}

		select {
		case jobs := <-launched:
			if len(jobs) != 1 {
				t.Errorf("launched %d jobs, want 1", len(jobs))
			}
		case <-time.After(time.Second):
			t.Fatal("launcher was not invoked")
		}

		if _, ok := s.manager.Get(resp.Jobs[0].ID); !ok {
			t.Error("accepted job should be tracked by the manager")
		}
	})

	t.Run("unreachable domain rejects the whole batch", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		dead.Close()

		launched := false
		s, _ := newTestServer(t,
			WithLauncher(func(ctx context.Context, jobs []*model.CrawlJob) {
				launched = true
			}),
		)

		w := doRequest(s, http.MethodPost, "/crawl", `{"domains":["`+dead.URL+`"]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "unreachable") {
			t.Errorf("response should list unreachable domains: %s", w.Body.String())
		}
		if launched {
			t.Error("no jobs should launch for a rejected batch")
		}
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		w := doRequest(s, http.MethodPost, "/crawl", `{"domains": "not-a-list"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("empty domain list is rejected", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		w := doRequest(s, http.MethodPost, "/crawl", `{"domains":[]}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

// TestHandleStatus tests the status endpoint.
func TestHandleStatus(t *testing.T) {
	t.Parallel()

	t.Run("live job status", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)

		job := model.NewCrawlJob("https://www.example.com")
		if err := job.MarkRunning(); err != nil {
			t.Fatalf("MarkRunning failed: %v", err)
		}
		job.UpdateStats(model.CrawlStats{Discovered: 10, Visited: 4, Failed: 1})
		s.manager.Add(job)

		w := doRequest(s, http.MethodGet, "/status/"+job.ID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}

		var resp struct {
			Status       string `json:"status"`
			VisitedCount int    `json:"visitedCount"`
			BudgetCapped bool   `json:"budgetCapped"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if resp.Status != "running" {
			t.Errorf("status = %q, want running", resp.Status)
		}
		if resp.VisitedCount != 4 {
			t.Errorf("visitedCount = %d, want 4", resp.VisitedCount)
		}
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		w := doRequest(s, http.MethodGet, "/status/no-such-job", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("falls back to the database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		})

		snap := model.JobSnapshot{
			ID:         "archived-job",
			Domain:     "https://www.example.com",
			Status:     model.StatusCompleted,
			Stats:      model.CrawlStats{Discovered: 3, Visited: 3},
			StartedAt:  time.Now().Add(-time.Hour),
			FinishedAt: time.Now().Add(-59 * time.Minute),
		}
		if err := db.SaveJob(context.Background(), snap, nil); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		s, _ := newTestServer(t, WithDatabase(db))
		w := doRequest(s, http.MethodGet, "/status/archived-job", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "completed") {
			t.Errorf("response should carry the persisted status: %s", w.Body.String())
		}
	})
}

// TestHandleDownload tests result file serving.
func TestHandleDownload(t *testing.T) {
	t.Parallel()

	t.Run("serves the result file", func(t *testing.T) {
		t.Parallel()

		s, cfg := newTestServer(t)
		urls := []string{"https://www.example.com/", "https://www.example.com/a"}
		if _, err := report.WriteURLListFile(cfg.OutputDir, "example.com", urls); err != nil {
			t.Fatalf("WriteURLListFile failed: %v", err)
		}

		w := doRequest(s, http.MethodGet, "/download/example.com", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if w.Body.String() != "https://www.example.com/\nhttps://www.example.com/a\n" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("www prefix maps to the same file", func(t *testing.T) {
		t.Parallel()

		s, cfg := newTestServer(t)
		if _, err := report.WriteURLListFile(cfg.OutputDir, "example.com", []string{"https://www.example.com/"}); err != nil {
			t.Fatalf("WriteURLListFile failed: %v", err)
		}

		w := doRequest(s, http.MethodGet, "/download/www.example.com", "")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("falls back to the database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() {
			if err := db.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		})

		urls := []string{"https://www.example.com/", "https://www.example.com/b"}
		snap := model.JobSnapshot{
			ID:         "history-job",
			Domain:     "https://www.example.com",
			Status:     model.StatusCompleted,
			StartedAt:  time.Now().Add(-time.Hour),
			FinishedAt: time.Now(),
		}
		if err := db.SaveJob(context.Background(), snap, urls); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		s, _ := newTestServer(t, WithDatabase(db))
		w := doRequest(s, http.MethodGet, "/download/example.com", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "https://www.example.com/b") {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("missing result is 404", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestServer(t)
		w := doRequest(s, http.MethodGet, "/download/nothing.example", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

// TestHandleHealth tests the liveness endpoint.
func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
