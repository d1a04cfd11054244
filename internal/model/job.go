package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a crawl job.
// Transitions are monotonic: pending → running → {completed, failed},
// plus pending → failed when pre-flight validation rejects the domain.
type JobStatus string

const (
	// StatusPending means the job has been accepted but has not started crawling.
	StatusPending JobStatus = "pending"

	// StatusRunning means the crawl is in progress.
	StatusRunning JobStatus = "running"

	// StatusCompleted means the crawl finished, either by exhausting the link
	// graph or by hitting a configured budget (see CrawlJob.BudgetCapped).
	StatusCompleted JobStatus = "completed"

	// StatusFailed means the job could not run at all, e.g. the domain was
	// unreachable. Per-URL fetch failures never fail a job.
	StatusFailed JobStatus = "failed"
)

// CrawlJob tracks one per-domain crawl from acceptance to completion.
//
// Design decision: The job carries its own mutex rather than relying on
// callers to synchronize because the HTTP status endpoint reads job state
// concurrently with the pipeline mutating it. All reads and writes go
// through the accessor methods below.
type CrawlJob struct {
	// ID uniquely identifies the job.
	ID string

	// Domain is the normalized target, e.g. "https://www.example.com".
	Domain string

	mu sync.Mutex

	// status is the current lifecycle state. Guarded by mu.
	status JobStatus

	// budgetCapped records that the job completed because a page-count or
	// wall-clock budget was hit rather than because the graph was exhausted.
	// The result contract is identical; this exists for observability.
	budgetCapped bool

	// errorMessage holds the failure reason when status is failed.
	errorMessage string

	// stats holds live crawl counters, updated by the crawler's progress
	// callback while the job is running.
	stats CrawlStats

	// urls is the final result set of canonical URLs. Only set on completion.
	urls []string

	// startedAt and finishedAt bracket the running phase.
	startedAt  time.Time
	finishedAt time.Time
}

// CrawlStats holds crawl progress counters.
type CrawlStats struct {
	// Discovered is the number of unique canonical URLs seen by the frontier.
	Discovered int

	// Visited is the number of frontier entries handed to workers.
	Visited int

	// Failed is the number of visited URLs whose navigation failed after retries.
	Failed int
}

// NewCrawlJob creates a pending job for the given domain.
func NewCrawlJob(domain string) *CrawlJob {
	return &CrawlJob{
		ID:     uuid.NewString(),
		Domain: domain,
		status: StatusPending,
	}
}

// Status returns the current lifecycle state.
func (j *CrawlJob) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// MarkRunning transitions the job from pending to running.
// It returns an error if the job is not pending, preserving monotonicity.
func (j *CrawlJob) MarkRunning() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPending {
		return fmt.Errorf("cannot start job in state %q", j.status)
	}
	j.status = StatusRunning
	j.startedAt = time.Now()
	return nil
}

// Complete transitions the job to completed and records the result set.
// budgetCapped distinguishes budget-capped completion from full exhaustion.
func (j *CrawlJob) Complete(urls []string, budgetCapped bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return fmt.Errorf("cannot complete job in state %q", j.status)
	}
	j.status = StatusCompleted
	j.urls = urls
	j.budgetCapped = budgetCapped
	j.finishedAt = time.Now()
	return nil
}

// Fail transitions the job to failed with the given reason.
// Allowed from pending (pre-flight validation failure) and running.
func (j *CrawlJob) Fail(reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusCompleted || j.status == StatusFailed {
		return fmt.Errorf("cannot fail job in state %q", j.status)
	}
	j.status = StatusFailed
	j.errorMessage = reason
	j.finishedAt = time.Now()
	return nil
}

// UpdateStats replaces the live progress counters.
// Called from the crawler's progress callback while the job is running.
func (j *CrawlJob) UpdateStats(stats CrawlStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats = stats
}

// Snapshot returns a point-in-time copy of the job's mutable state.
type JobSnapshot struct {
	ID           string
	Domain       string
	Status       JobStatus
	BudgetCapped bool
	ErrorMessage string
	Stats        CrawlStats
	URLs         []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Snapshot returns a consistent copy of the job state for readers.
// The URLs slice is shared, not copied; it is never mutated after Complete.
func (j *CrawlJob) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:           j.ID,
		Domain:       j.Domain,
		Status:       j.status,
		BudgetCapped: j.budgetCapped,
		ErrorMessage: j.errorMessage,
		Stats:        j.stats,
		URLs:         j.urls,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
	}
}

// URLs returns the final result set. Only meaningful once completed.
func (j *CrawlJob) URLs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.urls
}

// Duration returns how long the running phase took, or zero if not finished.
func (j *CrawlJob) Duration() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.startedAt.IsZero() || j.finishedAt.IsZero() {
		return 0
	}
	return j.finishedAt.Sub(j.startedAt)
}
