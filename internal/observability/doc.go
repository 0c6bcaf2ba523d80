// Package observability provides structured logging and Prometheus metrics
// for the recipe API.
//
// This package implements:
//   - Zap logger construction from LOG_LEVEL / LOG_FORMAT
//   - Request-scoped loggers carried on the context
//   - RED metrics for the HTTP surface plus retrieval and generation timings
package observability
