package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: Package-level sentinel errors rather than fmt.Errorf at
// the call site, so callers can match with errors.Is while the messages stay
// human-readable.
var (
	// ErrNoTarget is returned when no domain is given to the crawl command.
	ErrNoTarget = errors.New("no target specified: provide one or more domains")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxScrolls is returned when the scroll cap is negative.
	// Zero is valid and disables scroll acquisition.
	ErrInvalidMaxScrolls = errors.New("invalid max scrolls: must be non-negative")

	// ErrInvalidScrollWait is returned when the settle interval is negative.
	ErrInvalidScrollWait = errors.New("invalid scroll wait: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is negative.
	// Zero means the default budget; budgets cannot be disabled.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidBudget is returned when the wall-clock budget is negative.
	ErrInvalidBudget = errors.New("invalid budget: must be non-negative")

	// ErrInvalidLoadTimeout is returned when the page-load timeout is not positive.
	ErrInvalidLoadTimeout = errors.New("invalid load timeout: must be positive")

	// ErrInvalidRetryCount is returned when the retry count is negative.
	ErrInvalidRetryCount = errors.New("invalid retry count: must be non-negative")

	// ErrInvalidBatchSize is returned when the domain batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")
)
