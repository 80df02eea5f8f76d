// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// The log files themselves land under the Log storage category; this
// package only shapes what gets written.
//
// Example:
//
//	logger := logging.NewDefault()
//	logger.Info("backend selected", zap.String("kind", "native"))
package logging
