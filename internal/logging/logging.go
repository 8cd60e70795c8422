/*
Package logging builds the process logger and turns crawl events into log
records.
*/
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/HRemonen/ljgrawlr/internal/crawler"
)

// ParseLevel maps a configuration level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// New returns a tint logger writing to w at level. Colors are only used when
// w is a terminal.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Observer logs crawl events.
type Observer struct {
	logger *slog.Logger
}

// NewObserver returns an Observer that logs to logger.
func NewObserver(logger *slog.Logger) *Observer {
	return &Observer{logger: logger}
}

// OnEvent implements crawler.Observer.
func (o *Observer) OnEvent(e crawler.Event) {
	level, msg := describe(e.Kind)

	attrs := []slog.Attr{
		slog.String("run_id", e.RunID),
		slog.String("state", e.State.String()),
	}
	if e.Cursor != "" {
		attrs = append(attrs, slog.String("cursor", e.Cursor))
	}
	if e.URL != "" {
		attrs = append(attrs, slog.String("url", e.URL))
	}
	if e.Path != "" {
		attrs = append(attrs, slog.String("path", e.Path))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	if countable(e.Kind) {
		attrs = append(attrs, slog.Int("count", e.Count))
	}
	if e.Err != nil {
		attrs = append(attrs, tint.Err(e.Err))
	}

	o.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func countable(k crawler.EventKind) bool {
	switch k {
	case crawler.EventListed, crawler.EventYearComplete, crawler.EventFinished, crawler.EventDiscrepancy:
		return true
	default:
		return false
	}
}

func describe(k crawler.EventKind) (slog.Level, string) {
	switch k {
	case crawler.EventTransition:
		return slog.LevelDebug, "state"
	case crawler.EventStrategy:
		return slog.LevelInfo, "strategy selected"
	case crawler.EventListed:
		return slog.LevelInfo, "listing page"
	case crawler.EventListFailed:
		return slog.LevelWarn, "listing page unavailable"
	case crawler.EventPruned:
		return slog.LevelDebug, "entry pruned from listing"
	case crawler.EventRevisit:
		return slog.LevelDebug, "entry already visited"
	case crawler.EventFetchFailed:
		return slog.LevelWarn, "entry fetch failed"
	case crawler.EventParseFailed:
		return slog.LevelWarn, "entry parse failed"
	case crawler.EventOutOfWindow:
		return slog.LevelDebug, "entry outside window"
	case crawler.EventFiltered:
		return slog.LevelInfo, "entry filtered"
	case crawler.EventSaved:
		return slog.LevelInfo, "entry saved"
	case crawler.EventExisting:
		return slog.LevelInfo, "entry already saved"
	case crawler.EventWriteFailed:
		return slog.LevelError, "entry write failed"
	case crawler.EventHalted:
		return slog.LevelInfo, "crawl halted"
	case crawler.EventDiscrepancy:
		return slog.LevelWarn, "record count discrepancy"
	case crawler.EventYearComplete:
		return slog.LevelInfo, "year complete"
	case crawler.EventFinished:
		return slog.LevelInfo, "crawl finished"
	default:
		return slog.LevelInfo, string(k)
	}
}
