package logcontext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/logstream"
	"github.com/linnemanlabs/remedy/internal/logtime"
	"github.com/linnemanlabs/remedy/internal/loki"
)

// fakeStore replays canned results and records the queries it saw.
type fakeStore struct {
	results []*loki.Result
	errs    []error
	queries []loki.Params
}

func (f *fakeStore) Query(_ context.Context, p loki.Params) (*loki.Result, error) {
	idx := len(f.queries)
	f.queries = append(f.queries, p)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return &loki.Result{}, nil
}

var base = time.Date(2025, 11, 6, 11, 0, 0, 0, time.UTC)

// windowResult builds one backward-ordered stream of count entries one
// second apart, newest first, ending (oldest) at base.
func windowResult(count int, messageAt map[int]string) *loki.Result {
	entries := make([]alert.LogEntry, 0, count)
	for i := count - 1; i >= 0; i-- {
		msg := fmt.Sprintf("line %d", i)
		if m, ok := messageAt[i]; ok {
			msg = m
		}
		entries = append(entries, alert.LogEntry{
			Timestamp: fmt.Sprintf("%d", base.Add(time.Duration(i)*time.Second).UnixNano()),
			Labels:    alert.Labels{Filename: "job.log"},
			Message:   msg,
		})
	}
	return &loki.Result{
		Streams:    []logstream.Stream{{Labels: map[string]string{"filename": "job.log"}, Entries: entries}},
		EntryCount: count,
	}
}

func targetAt(i int) string {
	return fmt.Sprintf("%d", base.Add(time.Duration(i)*time.Second).UnixNano())
}

func TestRetrieveAbove_SliceSize(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []*loki.Result{
		windowResult(40, map[int]string{30: "fatal: task failed on host"}),
	}}
	r := New(store, nil)

	got, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "fatal: task failed",
		Timestamp: targetAt(30),
	}, 10)
	if err != nil {
		t.Fatalf("RetrieveAbove: %v", err)
	}

	if len(got) != 11 {
		t.Fatalf("returned %d entries, want 11 (10 above + target)", len(got))
	}
	if !strings.Contains(got[len(got)-1].Message, "fatal: task failed") {
		t.Errorf("last entry = %q, want the target", got[len(got)-1].Message)
	}
	// Entries must be in ascending chronological order.
	for i := 1; i < len(got); i++ {
		a, _ := logtime.Resolve(got[i-1].Timestamp)
		b, _ := logtime.Resolve(got[i].Timestamp)
		if b.Before(a) {
			t.Fatalf("entries out of order at %d", i)
		}
	}
}

func TestRetrieveAbove_PartialContext(t *testing.T) {
	t.Parallel()

	// Only 5 entries exist before the target; asking for 20 returns 6.
	store := &fakeStore{results: []*loki.Result{
		windowResult(12, map[int]string{5: "fatal: connection reset"}),
	}}
	r := New(store, nil)

	got, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "fatal: connection reset",
		Timestamp: targetAt(5),
	}, 20)
	if err != nil {
		t.Fatalf("RetrieveAbove: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("returned %d entries, want 6 (5 above + target)", len(got))
	}
}

func TestRetrieveAbove_TargetNotFound(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []*loki.Result{windowResult(40, nil)}}
	r := New(store, nil)

	got, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "fatal: connection refused",
		Timestamp: targetAt(20),
	}, 10)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
	if len(got) != 0 {
		t.Errorf("returned %d entries, want 0", len(got))
	}
}

func TestRetrieveAbove_WindowBounds(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []*loki.Result{
		windowResult(3, map[int]string{2: "boom"}),
	}}
	r := New(store, nil)

	target := base.Add(2 * time.Second)
	if _, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "boom",
		Timestamp: fmt.Sprintf("%d", target.UnixNano()),
	}, 1); err != nil {
		t.Fatalf("RetrieveAbove: %v", err)
	}

	p := store.queries[0]
	start, err := logtime.Resolve(p.Start)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	end, err := logtime.Resolve(p.End)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !start.Before(target) {
		t.Errorf("start %v not before target %v", start, target)
	}
	if end.Before(target) {
		t.Errorf("end %v before target %v", end, target)
	}
	if want := target.AddDate(0, 0, -LookbackDays); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := target.Add(LookaheadMinutes * time.Minute); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
	if p.Limit != loki.MaxQueryLimit {
		t.Errorf("limit = %d, want %d", p.Limit, loki.MaxQueryLimit)
	}
	if p.Direction != logstream.Backward {
		t.Errorf("direction = %q, want backward", p.Direction)
	}
}

func TestRetrieveAbove_TruncatedMessageStripped(t *testing.T) {
	t.Parallel()

	full := `fatal: [host1]: FAILED! => {"msg": "Request failed", "status_code": 307}`
	store := &fakeStore{results: []*loki.Result{
		windowResult(10, map[int]string{7: full}),
	}}
	r := New(store, nil)

	// The stored alert message was truncated by an upstream display step.
	truncated := full[:40] + " ..."
	got, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   truncated,
		Timestamp: targetAt(7),
	}, 3)
	if err != nil {
		t.Fatalf("RetrieveAbove: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("returned %d entries, want 4", len(got))
	}
}

func TestRetrieveAbove_FallbackSearch(t *testing.T) {
	t.Parallel()

	search := &loki.Result{
		Streams: []logstream.Stream{{
			Labels: map[string]string{"filename": "job.log"},
			Entries: []alert.LogEntry{{
				Timestamp: targetAt(8),
				Message:   "fatal: oops",
			}},
		}},
		EntryCount: 1,
	}
	store := &fakeStore{results: []*loki.Result{
		search,
		windowResult(10, map[int]string{8: "fatal: oops"}),
	}}
	r := New(store, nil)

	got, err := r.RetrieveAbove(context.Background(), Target{
		File:    "job.log",
		Message: "fatal: oops",
		// No timestamp supplied.
	}, 2)
	if err != nil {
		t.Fatalf("RetrieveAbove: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("returned %d entries, want 3", len(got))
	}

	if len(store.queries) != 2 {
		t.Fatalf("saw %d queries, want 2 (search + window)", len(store.queries))
	}
	if !strings.Contains(store.queries[0].Query, `|= "fatal: oops"`) {
		t.Errorf("search query = %q, want text filter", store.queries[0].Query)
	}
	if store.queries[0].Limit != 1 {
		t.Errorf("search limit = %d, want 1", store.queries[0].Limit)
	}
}

func TestRetrieveAbove_TimestampUnresolved(t *testing.T) {
	t.Parallel()

	// Search comes back empty: no direct timestamp, no hit.
	store := &fakeStore{results: []*loki.Result{{}}}
	r := New(store, nil)

	_, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "never logged",
		Timestamp: "not-a-timestamp",
	}, 5)
	if !errors.Is(err, ErrTimestampUnresolved) {
		t.Fatalf("err = %v, want ErrTimestampUnresolved", err)
	}
}

func TestRetrieveAbove_EmptyWindow(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []*loki.Result{{}}}
	r := New(store, nil)

	_, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "boom",
		Timestamp: targetAt(0),
	}, 5)
	if !errors.Is(err, ErrContextQueryFailed) {
		t.Fatalf("err = %v, want ErrContextQueryFailed", err)
	}
}

func TestRetrieveAbove_QueryError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{errs: []error{errors.New("loki unavailable")}}
	r := New(store, nil)

	_, err := r.RetrieveAbove(context.Background(), Target{
		File:      "job.log",
		Message:   "boom",
		Timestamp: targetAt(0),
	}, 5)
	if !errors.Is(err, ErrContextQueryFailed) {
		t.Fatalf("err = %v, want ErrContextQueryFailed", err)
	}
}
