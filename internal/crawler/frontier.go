package crawler

import (
	"sync"
)

// Entry is one URL waiting in the frontier, with its distance from the
// seed.
type Entry struct {
	// URL is the canonical URL to render.
	URL string

	// Depth is the number of link hops from the seed. The seed is depth 0.
	Depth int
}

// Frontier is the breadth-first work queue shared by all crawl workers.
//
// It owns the three invariants the crawl depends on:
//
//   - exactly-once: a canonical URL is handed to a worker at most once,
//     no matter how many pages link to it or how many workers race to
//     enqueue it
//   - bounded: at most the configured budget of URLs is ever handed
//     out; once the budget is spent the frontier reports itself capped
//   - terminating: when the queue is empty and no worker is mid-page,
//     the frontier closes and all blocked Dequeue calls return
//
// Design decision: A mutex with a condition variable rather than
// channels. Dequeue must atomically check "queue empty AND no page in
// flight" to detect termination, and a channel cannot express that
// compound predicate without busy polling.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// seen holds every canonical URL ever enqueued, visited or not.
	seen map[string]struct{}

	// queue holds entries waiting for a worker, in discovery order.
	queue []Entry

	// inflight counts entries dequeued but not yet marked done.
	inflight int

	// budget is how many more entries may be handed out.
	budget int

	// capped records that a dequeue was refused because the budget was
	// spent.
	capped bool

	// closed stops all further work once set.
	closed bool
}

// NewFrontier creates a frontier that will hand out at most maxPages
// entries.
func NewFrontier(maxPages int) *Frontier {
	f := &Frontier{
		seen:   make(map[string]struct{}),
		budget: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// TryEnqueue adds a canonical URL to the frontier if it has never been
// seen. It reports whether the URL was admitted. The seen check and the
// insert are a single atomic step, so two workers discovering the same
// URL concurrently admit it exactly once.
func (f *Frontier) TryEnqueue(url string, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}

	f.seen[url] = struct{}{}
	f.queue = append(f.queue, Entry{URL: url, Depth: depth})
	f.cond.Signal()
	return true
}

// Dequeue blocks until an entry is available, the frontier closes, or
// the page budget is spent. It returns false when the caller should
// stop.
//
// Each successful dequeue consumes one unit of budget and registers the
// entry as in flight; the caller must call MarkDone when the page is
// fully processed, including enqueuing its links.
func (f *Frontier) Dequeue() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return Entry{}, false
		}
		if len(f.queue) > 0 {
			if f.budget <= 0 {
				// Entries remain but none may be handed out. The crawl
				// result must record that it was cut short.
				f.capped = true
				f.close()
				return Entry{}, false
			}
			entry := f.queue[0]
			f.queue = f.queue[1:]
			f.budget--
			f.inflight++
			return entry, true
		}
		if f.inflight == 0 {
			// Nothing queued and nobody producing: the traversal is
			// complete.
			f.close()
			return Entry{}, false
		}
		f.cond.Wait()
	}
}

// MarkDone signals that a dequeued entry is fully processed. When the
// last in-flight entry finishes with an empty queue, the frontier
// closes and wakes every blocked worker.
func (f *Frontier) MarkDone() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	if f.inflight == 0 && len(f.queue) == 0 {
		f.close()
		return
	}
	// A finished page may have enqueued nothing; a waiter blocked on
	// the empty queue needs to re-check the termination predicate.
	f.cond.Broadcast()
}

// Close shuts the frontier down, releasing all blocked workers.
// Used for wall-clock budget expiry and external cancellation.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.close()
}

// close must be called with the mutex held.
func (f *Frontier) close() {
	if !f.closed {
		f.closed = true
		f.cond.Broadcast()
	}
}

// Capped reports whether the page budget cut the traversal short.
func (f *Frontier) Capped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capped
}

// SeenCount returns how many distinct canonical URLs were discovered.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
