// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// Per-domain site configurations may carry session cookies and custom
// headers so that crawls see the same catalog a logged-in shopper sees.
// Those values must never leak into log output that is shared or stored,
// so all attributes pass through a sanitizing handler before they reach
// the terminal.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // Will be sanitized
//	    "url", "https://shop.example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
