package pgstore

import "context"

// logger is the minimal structured-logging surface needed for migration
// output routing. Satisfied by *slog.Logger.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
