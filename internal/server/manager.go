package server

import (
	"strings"
	"sync"

	"github.com/SiddharthSanch/product-discoverer/internal/model"
	"github.com/SiddharthSanch/product-discoverer/internal/report"
)

// Manager tracks crawl jobs for the lifetime of the server process.
//
// Design decision: Jobs live in memory and are additionally persisted
// to SQLite by the pipeline. The in-memory map serves live status
// queries for running jobs; the database answers for jobs from earlier
// server runs.
type Manager struct {
	mu sync.RWMutex

	// jobs maps job ID to job.
	jobs map[string]*model.CrawlJob

	// byDomain maps the bare host to its most recent job.
	byDomain map[string]*model.CrawlJob
}

// NewManager creates an empty job manager.
func NewManager() *Manager {
	return &Manager{
		jobs:     make(map[string]*model.CrawlJob),
		byDomain: make(map[string]*model.CrawlJob),
	}
}

// Add registers a job. A new job for a domain replaces the previous one
// in the domain index; the old job stays reachable by ID.
func (m *Manager) Add(job *model.CrawlJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.byDomain[domainKey(job.Domain)] = job
}

// Get returns the job with the given ID.
func (m *Manager) Get(id string) (*model.CrawlJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// LatestForDomain returns the most recent job for a domain. The lookup
// is tolerant of scheme and www. differences.
func (m *Manager) LatestForDomain(domain string) (*model.CrawlJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.byDomain[domainKey(domain)]
	return job, ok
}

// Len returns the number of tracked jobs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// domainKey normalizes a target to the same bare host the result file
// naming uses, so "example.com" and "https://www.example.com" index the
// same job.
func domainKey(target string) string {
	return strings.TrimSuffix(report.OutputBaseName(target), ".txt")
}
