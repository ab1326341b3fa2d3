// Package slogpretty implements a human-readable slog.Handler for local
// development, used in place of the JSON handler when AppConfig.Pretty is
// set. Callers wrap os.Stdout with github.com/mattn/go-colorable before
// passing it here so color escapes survive on Windows consoles; on a
// non-terminal destination (redirected to a file, piped into another
// process) the handler still renders plain text, just without color.
package slogpretty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/fatih/color"
)

// PrettyHandlerOptions wraps the standard slog.HandlerOptions so callers
// configure level/ReplaceAttr exactly as they would for any other handler.
type PrettyHandlerOptions struct {
	SlogOpts *slog.HandlerOptions
}

// PrettyHandler renders each record as "TIME LEVEL message {json attrs}".
// Enabled comes from an embedded slog.JSONHandler; Handle prints instead
// of emitting JSON, and WithAttrs/WithGroup keep the handler's own attr
// list for Handle to print. Group names are not shown in the printed
// attrs.
type PrettyHandler struct {
	slog.Handler
	l     *log.Logger
	attrs []slog.Attr
}

// NewPrettyHandler returns a PrettyHandler writing to out.
func (o PrettyHandlerOptions) NewPrettyHandler(out io.Writer) slog.Handler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(out, o.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := levelLabel(r.Level)

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	timeStr := r.Time.Format("15:04:05.000")
	msg := color.CyanString(r.Message)

	if len(fields) == 0 {
		h.l.Println(timeStr, level, msg)
		return nil
	}

	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("slogpretty.PrettyHandler.Handle: %w", err)
	}
	h.l.Println(timeStr, level, msg, string(b))
	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler.WithAttrs(attrs),
		l:       h.l,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler.WithGroup(name),
		l:       h.l,
		attrs:   h.attrs,
	}
}

func levelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return color.WhiteString("DEBUG")
	case level < slog.LevelWarn:
		return color.GreenString("INFO ")
	case level < slog.LevelError:
		return color.YellowString("WARN ")
	default:
		return color.RedString("ERROR")
	}
}
