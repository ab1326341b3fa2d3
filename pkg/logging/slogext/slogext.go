// Package slogext carries small slog.Attr helpers shared by every layer
// that logs an error, so the attribute key stays consistent everywhere.
package slogext

import "log/slog"

// Err wraps err under the conventional "error" key, or returns a no-op
// attribute when err is nil so call sites don't need a nil check first.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
