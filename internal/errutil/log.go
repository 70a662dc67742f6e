// Package errutil logs errors with the structured context carried by oops errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. For oops errors the code and context are added as
// attributes; other errors are logged by their string. attrs are appended as given.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}

	if oopsErr, ok := oops.AsOops(err); ok {
		out := make([]any, 0, len(attrs)+6)
		out = append(out, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil {
			out = append(out, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			out = append(out, "context", octx)
		}
		logger.ErrorContext(ctx, msg, append(out, attrs...)...)
		return
	}

	logger.ErrorContext(ctx, msg, append([]any{"error", err}, attrs...)...)
}

// Code returns the oops code of err, or nil for plain errors.
func Code(err error) any {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return nil
}
