// Package probe performs reachability checks on crawl targets before a
// crawl job starts.
//
// Users typically enter bare domains ("example.com") rather than full
// URLs. The prober normalizes a target to a seed URL (adding the https
// scheme and the www. prefix when missing) and then issues a cheap HEAD
// request to confirm the host answers. Unreachable targets are rejected
// up front so a misspelled domain fails in seconds instead of occupying
// a browser pipeline until every retry times out.
package probe
