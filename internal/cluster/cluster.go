// Package cluster assigns alerts a failure-signature cluster label. Labeling
// is delegated to an external clustering service in production; a local
// deterministic labeler covers development and tests. Either way the label
// function is pure over message content.
package cluster

import (
	"context"
	"strconv"
)

// Labeler assigns one cluster label per input message, positionally.
type Labeler interface {
	Label(ctx context.Context, messages []string) ([]string, error)
}

// outlierLabel marks a message the clustering model considered noise.
const outlierLabel = -1

// NormalizeOutliers rewrites outlier labels so every noise point becomes a
// singleton cluster. Fresh IDs start one past the largest real cluster,
// assigned in input order. The slice is modified in place and returned.
func NormalizeOutliers(labels []int) []int {
	next := 0
	for _, l := range labels {
		if l >= next {
			next = l + 1
		}
	}
	for i, l := range labels {
		if l == outlierLabel {
			labels[i] = next
			next++
		}
	}
	return labels
}

// labelStrings renders numeric cluster labels as the string form the rest of
// the system carries.
func labelStrings(labels []int) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strconv.Itoa(l)
	}
	return out
}
