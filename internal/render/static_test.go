package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// TestStaticRendererRender tests the plain-HTTP renderer.
func TestStaticRendererRender(t *testing.T) {
	t.Parallel()

	t.Run("successful fetch returns HTML snapshot", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Mozilla") {
				t.Errorf("unexpected User-Agent %q", got)
			}
			w.Write([]byte(`<html><body><a href="/products/1">p1</a></body></html>`))
		}))
		defer srv.Close()

		r := NewStaticRenderer(WithStaticClient(srv.Client()))
		snap, err := r.Render(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !snap.OK() {
			t.Fatalf("expected OK snapshot, got %+v", snap)
		}
		if !strings.Contains(snap.HTML, "/products/1") {
			t.Errorf("snapshot HTML missing link: %q", snap.HTML)
		}
		if snap.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want 200", snap.StatusCode)
		}
		if snap.Scrolls != 0 {
			t.Errorf("static renderer should not scroll, got %d", snap.Scrolls)
		}
	})

	t.Run("error status fails the snapshot", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		r := NewStaticRenderer(WithStaticClient(srv.Client()))
		snap, err := r.Render(context.Background(), srv.URL)
		if !errors.Is(err, ErrRenderFailed) {
			t.Fatalf("expected ErrRenderFailed, got %v", err)
		}
		if snap.Outcome != model.OutcomeFailed {
			t.Errorf("Outcome = %q, want failed", snap.Outcome)
		}
		if snap.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", snap.StatusCode)
		}
	})

	t.Run("connection failure fails the snapshot", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		r := NewStaticRenderer()
		_, err := r.Render(context.Background(), srv.URL)
		if !errors.Is(err, ErrRenderFailed) {
			t.Errorf("expected ErrRenderFailed, got %v", err)
		}
	})

	t.Run("body size is limited", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("x", 4096)))
		}))
		defer srv.Close()

		r := NewStaticRenderer(WithStaticClient(srv.Client()), WithMaxBodySize(1024))
		snap, err := r.Render(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if len(snap.HTML) != 1024 {
			t.Errorf("HTML length = %d, want 1024", len(snap.HTML))
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := NewStaticRenderer(WithStaticClient(srv.Client()))
		if _, err := r.Render(ctx, srv.URL); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
