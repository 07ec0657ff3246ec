// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, optional rotation to a file through lumberjack, and
// helpers for carrying request-scoped loggers in a context.Context.
package logger
