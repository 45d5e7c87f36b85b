// Package logtime normalizes the timestamp formats that show up in log
// backends and alert payloads into a single UTC representation.
//
// Accepted inputs are decimal epoch strings interpreted by magnitude
// (seconds, milliseconds or nanoseconds), free-form date strings, and
// relative offsets like "-5m" resolved against a reference instant.
package logtime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrInvalidTimestamp reports a timestamp that does not parse or falls
// outside the sane calendar bound.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Epoch magnitude thresholds. A 19-digit value is nanoseconds, a 13-digit
// value milliseconds, anything 10 digits or fewer seconds.
const (
	nanosThreshold  = int64(1_000_000_000_000_000_000)
	millisThreshold = int64(1_000_000_000_000)
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Resolve converts a timestamp string of any supported format into a
// UTC instant. Naive date strings are assumed to be UTC.
func Resolve(timestamp string) (time.Time, error) {
	s := strings.TrimSpace(timestamp)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}

	if digitsOnly.MatchString(s) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, timestamp)
		}
		switch {
		case v > nanosThreshold:
			return time.Unix(0, v).UTC(), nil
		case v > millisThreshold:
			return time.UnixMilli(v).UTC(), nil
		default:
			return time.Unix(v, 0).UTC(), nil
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, timestamp, err)
	}
	return t.UTC(), nil
}

// FormatUTC renders an instant as RFC3339 UTC with a "Z" suffix and
// fractional seconds to the precision present ("2025-11-06T13:51:29.459Z").
// Resolve(FormatUTC(t)) yields the identical instant.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var offsetPattern = regexp.MustCompile(`^(-?)(\d+)([smhd])$`)

// ParseOffset parses a relative offset such as "-5m", "2h" or "-1d".
func ParseOffset(s string) (time.Duration, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid relative time format: %q", s)
	}
	v, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid relative time format: %q", s)
	}
	var unit time.Duration
	switch m[3] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	d := time.Duration(v) * unit
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// Sanity bounds for Validate: reject anything outside (2000, 2100), which
// catches epoch values in the wrong magnitude and garbage strings that
// happen to parse.
var (
	boundLower = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	boundUpper = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Validate resolves a timestamp and checks it falls strictly between the
// year 2000 and the year 2100. Returns the instant and whether it is usable.
func Validate(timestamp string) (time.Time, bool) {
	if timestamp == "" {
		return time.Time{}, false
	}
	t, err := Resolve(timestamp)
	if err != nil {
		return time.Time{}, false
	}
	if !t.After(boundLower) || !t.Before(boundUpper) {
		return time.Time{}, false
	}
	return t, true
}

// hasOffsetUnit reports whether the string looks like a relative offset
// rather than an absolute date ("5m", "-1d", "2h ago").
func hasOffsetUnit(s string) bool {
	return offsetPattern.MatchString(s)
}

// ResolveInput turns a time expression from a query into a backend-ready
// value. Relative expressions ("-5m", "2h ago", "now") are resolved against
// the reference timestamp when one is supplied and valid; without a
// reference they are passed through unchanged for the backend to interpret
// against its own clock. Absolute expressions are normalized to RFC3339 UTC,
// or passed through verbatim if they do not parse.
func ResolveInput(expr, reference string) string {
	ref, refValid := Validate(reference)

	s := strings.TrimSpace(expr)
	if s == "" || strings.EqualFold(s, "now") {
		if refValid {
			return FormatUTC(ref)
		}
		return "now"
	}

	// "2h ago" is the negative offset "-2h".
	if strings.Contains(strings.ToLower(s), "ago") {
		s = "-" + strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "ago", ""))
	}

	if hasOffsetUnit(s) {
		off, err := ParseOffset(s)
		if err != nil || !refValid {
			return s
		}
		return FormatUTC(ref.Add(off))
	}

	t, err := Resolve(s)
	if err != nil {
		// Let the backend reject or interpret it.
		return expr
	}
	return FormatUTC(t)
}
