// Package logstream merges independently-sorted log streams into one
// chronologically ordered sequence.
package logstream

import (
	"container/heap"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/logtime"
)

// Direction is the requested output order.
type Direction string

const (
	Forward  Direction = "forward"  // oldest first
	Backward Direction = "backward" // newest first
)

// Stream is one pre-sorted sequence of entries sharing a fixed label set,
// as returned by the log backend.
type Stream struct {
	Labels  map[string]string
	Entries []alert.LogEntry
}

// sourceKey identifies the physical log source behind a stream: its label
// set with detected_level excluded. The backend splits one file into
// separate streams per level; those must interleave by time, not be treated
// as distinct sources.
func sourceKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if k == "detected_level" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

// cursor walks one input stream during the merge.
type cursor struct {
	entries []alert.LogEntry
	times   []time.Time
	pos     int
	arrival int // input order, breaks timestamp ties for stability
}

type mergeHeap struct {
	cursors []*cursor
	desc    bool
}

func (h *mergeHeap) Len() int { return len(h.cursors) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.cursors[i], h.cursors[j]
	ta, tb := a.times[a.pos], b.times[b.pos]
	if !ta.Equal(tb) {
		if h.desc {
			return ta.After(tb)
		}
		return ta.Before(tb)
	}
	return a.arrival < b.arrival
}

func (h *mergeHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *mergeHeap) Push(x any) { h.cursors = append(h.cursors, x.(*cursor)) }

func (h *mergeHeap) Pop() any {
	old := h.cursors
	n := len(old)
	c := old[n-1]
	h.cursors = old[:n-1]
	return c
}

// Merge combines pre-sorted streams into one sequence ordered by timestamp
// according to direction. Streams from the same physical source (labels
// minus detected_level) interleave by time. The merge is stable: entries
// with equal timestamps keep the relative order of their input streams, and
// each stream's internal order is preserved untouched. Zero streams yield
// an empty result.
//
// This is a k-way heap merge, O(n log k) over n total entries, rather than
// concatenate-and-sort; k is small and entries can be large.
func Merge(streams []Stream, direction Direction) []alert.LogEntry {
	if len(streams) == 0 {
		return nil
	}

	// Group streams by source so arrival order (and therefore tie-breaking)
	// is per source first, per stream second.
	order := make([]string, 0, len(streams))
	groups := make(map[string][]Stream, len(streams))
	for _, s := range streams {
		key := sourceKey(s.Labels)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], s)
	}

	h := &mergeHeap{desc: direction == Backward}
	total := 0
	arrival := 0
	for _, key := range order {
		for _, s := range groups[key] {
			if len(s.Entries) == 0 {
				continue
			}
			c := &cursor{
				entries: s.Entries,
				times:   make([]time.Time, len(s.Entries)),
				arrival: arrival,
			}
			arrival++
			for i, e := range s.Entries {
				t, err := logtime.Resolve(e.Timestamp)
				if err != nil {
					// Unparseable timestamps sort to the stream position they
					// arrived at; keep the previous instant so stream order holds.
					if i > 0 {
						t = c.times[i-1]
					}
				}
				c.times[i] = t
			}
			h.cursors = append(h.cursors, c)
			total += len(s.Entries)
		}
	}
	heap.Init(h)

	out := make([]alert.LogEntry, 0, total)
	for h.Len() > 0 {
		c := h.cursors[0]
		out = append(out, c.entries[c.pos])
		c.pos++
		if c.pos == len(c.entries) {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return out
}
