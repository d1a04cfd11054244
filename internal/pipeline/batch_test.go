package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
)

// concurrencyStep observes how many jobs run at once.
type concurrencyStep struct {
	mu        sync.Mutex
	active    int
	maxActive int
	delay     time.Duration
}

func (s *concurrencyStep) Name() string { return "observe" }

func (s *concurrencyStep) Do(ctx context.Context, _ *model.CrawlJob) error {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-time.After(s.delay):
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return nil
}

// TestBatchProcessor tests concurrent multi-domain processing.
func TestBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("processes every target", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[string]bool)

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{name: "record", fn: func(job *model.CrawlJob) error {
				mu.Lock()
				seen[job.Domain] = true
				mu.Unlock()
				return nil
			}})
			return p
		}

		b := NewBatchProcessor(factory)
		jobs, err := b.ProcessBatch(context.Background(), []string{
			"example.com",
			"shop.example.org",
		})
		if err != nil {
			t.Fatalf("ProcessBatch failed: %v", err)
		}

		if len(jobs) != 2 {
			t.Fatalf("got %d jobs, want 2", len(jobs))
		}
		if !seen["https://www.example.com"] || !seen["https://shop.example.org"] {
			t.Errorf("pipelines saw %v, want normalized seeds", seen)
		}
	})

	t.Run("one failing domain does not stop the rest", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{name: "crawl", fn: func(job *model.CrawlJob) error {
				if job.Domain == "https://www.bad.example" {
					return errors.New("unreachable")
				}
				if err := job.MarkRunning(); err != nil {
					return err
				}
				return job.Complete(nil, false)
			}})
			return p
		}

		b := NewBatchProcessor(factory)
		jobs, err := b.ProcessBatch(context.Background(), []string{
			"bad.example",
			"good.example",
		})
		if err != nil {
			t.Fatalf("ProcessBatch failed: %v", err)
		}

		if jobs[0].Status() != model.StatusFailed {
			t.Errorf("bad domain status = %q, want failed", jobs[0].Status())
		}
		if jobs[1].Status() != model.StatusCompleted {
			t.Errorf("good domain status = %q, want completed", jobs[1].Status())
		}
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		t.Parallel()

		step := &concurrencyStep{delay: 20 * time.Millisecond}
		factory := func() *Pipeline {
			p := New()
			p.AddStep(step)
			return p
		}

		b := NewBatchProcessor(factory, WithBatchConcurrency(2))
		targets := []string{"a.example", "b.example", "c.example", "d.example", "e.example"}
		if _, err := b.ProcessBatch(context.Background(), targets); err != nil {
			t.Fatalf("ProcessBatch failed: %v", err)
		}

		if step.maxActive > 2 {
			t.Errorf("max concurrent pipelines = %d, want at most 2", step.maxActive)
		}
	})

	t.Run("pre-created jobs keep their IDs", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline { return New() }
		b := NewBatchProcessor(factory)

		job := model.NewCrawlJob("https://www.example.com")
		id := job.ID
		if err := b.ProcessJobs(context.Background(), []*model.CrawlJob{job}); err != nil {
			t.Fatalf("ProcessJobs failed: %v", err)
		}
		if job.ID != id {
			t.Error("job ID must not change across processing")
		}
	})

	t.Run("callback fires per domain", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline { return New() }
		b := NewBatchProcessor(factory)

		var mu sync.Mutex
		var done []string
		err := b.ProcessBatchWithCallback(context.Background(), []string{"a.example", "b.example"}, func(job *model.CrawlJob) {
			mu.Lock()
			done = append(done, job.Domain)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("ProcessBatchWithCallback failed: %v", err)
		}

		if len(done) != 2 {
			t.Errorf("callback fired %d times, want 2", len(done))
		}
	})
}
