// Package crawler implements the breadth-first traversal that discovers
// product page URLs on a single domain.
//
// # Architecture
//
// The package is designed around the Crawler type, which coordinates a
// fixed pool of workers draining a shared Frontier. The frontier tracks
// which canonical URLs have been seen so each page is rendered at most
// once. Every link found on a rendered page is normalized by the Policy
// to its canonical form and filtered against the domain rules before it
// can enter the frontier.
//
// Design decision: We implement our own traversal rather than using a
// crawling framework because:
//  1. Pages are fetched through a headless browser, not an HTTP client,
//     and frameworks assume they own the transport
//  2. The budget semantics (exact page cap, wall-clock bound) need
//     enforcement inside the queue, not around it
//  3. Custom canonicalization decides URL identity, which frameworks
//     keep internal
//
// # Components
//
//   - Crawler: coordinates workers, retries, and progress reporting
//   - Frontier: URL queue with deduplication and the page budget
//   - Policy: canonicalization and domain filtering rules
//   - link extraction: pulls anchor targets out of rendered HTML
//
// Crawls are always bounded. A page budget caps how many URLs are
// handed to workers, an optional depth limit stops expansion at a fixed
// distance from the seed, and a wall-clock budget is enforced through
// context cancellation. Whichever bound fires first, the crawl shuts
// down cleanly and reports the URLs it visited along with whether the
// traversal was cut short.
package crawler
