// Package logcontext reconstructs the chronological log context around a
// target log line: the N entries that preceded it in its file, recovered
// from the log backend through a bounded time window.
package logcontext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/logstream"
	"github.com/linnemanlabs/remedy/internal/logtime"
	"github.com/linnemanlabs/remedy/internal/loki"
)

const (
	// The window reaches far back because the target's position within the
	// file's history is unknown a priori; the small lookahead only absorbs
	// backend timestamp truncation and duplicate-timestamp ties.
	LookbackDays     = 25
	LookaheadMinutes = 2

	// DefaultLinesAbove is the context size when the caller does not specify one.
	DefaultLinesAbove = 10

	// searchLookbackDays bounds the fallback text search used when no valid
	// target timestamp is supplied.
	searchLookbackDays = 30

	// truncationSuffix marks a target message cut short by an upstream
	// display step; it is stripped before the substring search or the stored
	// text would never match.
	truncationSuffix = "..."
)

// Error kinds surfaced by RetrieveAbove. Callers match with errors.Is.
var (
	ErrInvalidTimestamp    = logtime.ErrInvalidTimestamp
	ErrTimestampUnresolved = errors.New("target timestamp unresolved")
	ErrContextQueryFailed  = errors.New("context query failed")
	ErrTargetNotFound      = errors.New("target message not found in window")
)

// Target identifies the log line to retrieve context for. Timestamp is
// optional; when absent or invalid the retriever falls back to searching the
// store for Message within File.
type Target struct {
	File      string
	Message   string
	Timestamp string
}

// Retriever resolves a target to an instant, queries a bounded window around
// it and slices out the preceding entries.
type Retriever struct {
	store  loki.Querier
	logger log.Logger
	now    func() time.Time
}

// New creates a Retriever backed by the given log store gateway.
func New(store loki.Querier, logger log.Logger) *Retriever {
	if logger == nil {
		logger = log.Nop()
	}
	return &Retriever{store: store, logger: logger, now: time.Now}
}

// RetrieveAbove returns up to n entries immediately preceding the target
// line, plus the target itself (at most n+1 entries). Fewer than n entries
// before the target is not an error; partial context is valid.
func (r *Retriever) RetrieveAbove(ctx context.Context, tgt Target, n int) ([]alert.LogEntry, error) {
	if n <= 0 {
		n = DefaultLinesAbove
	}
	message := strings.TrimRight(strings.TrimSuffix(tgt.Message, truncationSuffix), " ")

	target, err := r.resolveTarget(ctx, tgt.File, message, tgt.Timestamp)
	if err != nil {
		return nil, err
	}

	start := target.AddDate(0, 0, -LookbackDays)
	end := target.Add(LookaheadMinutes * time.Minute)
	r.logger.Info(ctx, "context window computed",
		"file", tgt.File,
		"start", logtime.FormatUTC(start),
		"end", logtime.FormatUTC(end),
	)

	res, err := r.store.Query(ctx, loki.Params{
		Query:     loki.FileQuery(tgt.File),
		Start:     logtime.FormatUTC(start),
		End:       logtime.FormatUTC(end),
		Limit:     loki.MaxQueryLimit,
		Direction: logstream.Backward,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextQueryFailed, err)
	}
	if res.EntryCount == 0 {
		return nil, fmt.Errorf("%w: no entries in window for %q", ErrContextQueryFailed, tgt.File)
	}

	// The backend returned newest-first; re-establish ascending chronological
	// order for the scan and slice.
	merged := logstream.Merge(res.Streams, logstream.Backward)
	reverse(merged)

	idx := -1
	for i, e := range merged {
		if strings.Contains(e.Message, message) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: scanned %d entries", ErrTargetNotFound, len(merged))
	}

	startIdx := idx - n
	if startIdx < 0 {
		startIdx = 0
	}
	out := merged[startIdx : idx+1]
	r.logger.Info(ctx, "context extracted",
		"file", tgt.File,
		"requested", n,
		"returned", len(out)-1,
		"window_entries", len(merged),
	)
	return out, nil
}

// resolveTarget yields the target instant: the supplied timestamp when it
// passes the sanity bound, otherwise the timestamp of the first search hit
// for the message within a recent window.
func (r *Retriever) resolveTarget(ctx context.Context, file, message, timestamp string) (time.Time, error) {
	if t, ok := logtime.Validate(timestamp); ok {
		return t, nil
	}
	if timestamp != "" {
		r.logger.Warn(ctx, "supplied timestamp invalid, falling back to search", "timestamp", timestamp)
	}

	now := r.now().UTC()
	res, err := r.store.Query(ctx, loki.Params{
		Query:     loki.TextSearchQuery(message, file),
		Start:     logtime.FormatUTC(now.AddDate(0, 0, -searchLookbackDays)),
		End:       logtime.FormatUTC(now),
		Limit:     1,
		Direction: logstream.Backward,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: search failed: %v", ErrTimestampUnresolved, err)
	}
	for _, s := range res.Streams {
		for _, e := range s.Entries {
			t, ok := logtime.Validate(e.Timestamp)
			if !ok {
				return time.Time{}, fmt.Errorf("%w: search hit has timestamp %q", ErrInvalidTimestamp, e.Timestamp)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: message not found in %q", ErrTimestampUnresolved, file)
}

func reverse(entries []alert.LogEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
