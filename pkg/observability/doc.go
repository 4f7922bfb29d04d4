// Package observability provides structured logging and tracing for the
// cache service.
//
// Logging is built on zap and exposed through the Logger interface so that
// packages depend on a narrow surface instead of a concrete logger. Tracing
// uses OpenTelemetry with an optional OTLP gRPC exporter.
package observability
