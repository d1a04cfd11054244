package model

// FetchOutcome classifies the result of rendering one URL.
type FetchOutcome string

const (
	// OutcomeOK means navigation succeeded and the snapshot holds settled HTML.
	OutcomeOK FetchOutcome = "ok"

	// OutcomeFailed means navigation failed (timeout, DNS error, or a non-2xx
	// terminal status). The snapshot carries no content.
	OutcomeFailed FetchOutcome = "failed"
)

// PageSnapshot is the settled rendering of a single page.
// It is produced exactly once per frontier entry by the renderer, consumed
// once by the link extractor, and not retained afterwards.
type PageSnapshot struct {
	// URL is the canonical URL the snapshot was rendered from.
	URL string

	// HTML is the final rendered document, captured after scroll acquisition.
	// Empty when Outcome is OutcomeFailed.
	HTML string

	// StatusCode is the terminal HTTP status of the navigation, when known.
	// Zero when navigation never produced a response.
	StatusCode int

	// Scrolls is the number of scroll iterations actually performed.
	Scrolls int

	// Outcome classifies the fetch result.
	Outcome FetchOutcome
}

// OK reports whether the snapshot holds usable content.
func (s *PageSnapshot) OK() bool {
	return s != nil && s.Outcome == OutcomeOK
}
