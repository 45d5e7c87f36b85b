package cluster

import (
	"context"
	"regexp"
	"strings"
)

// signatureTail is how much of the message tail feeds the signature. Failure
// lines front-load fixed prefixes (timestamps, task banners); the tail is
// where the distinguishing error text lives.
const signatureTail = 50

var variableParts = regexp.MustCompile(`[0-9]+`)

// LocalLabeler is a deterministic in-process labeler: messages with the same
// normalized signature share a cluster. It stands in for the clustering
// service in development and tests.
type LocalLabeler struct{}

// NewLocalLabeler creates a signature-based labeler.
func NewLocalLabeler() *LocalLabeler {
	return &LocalLabeler{}
}

// Label assigns sequential cluster IDs per distinct signature, in first-seen
// input order.
func (l *LocalLabeler) Label(_ context.Context, messages []string) ([]string, error) {
	labels := make([]int, len(messages))
	seen := make(map[string]int, len(messages))
	for i, m := range messages {
		sig := signature(m)
		id, ok := seen[sig]
		if !ok {
			id = len(seen)
			seen[sig] = id
		}
		labels[i] = id
	}
	return labelStrings(labels), nil
}

func signature(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	if len(s) > signatureTail {
		s = s[len(s)-signatureTail:]
	}
	return variableParts.ReplaceAllString(s, "#")
}
