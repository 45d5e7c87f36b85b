package logtime

import (
	"strings"
	"testing"
	"time"
)

func TestResolve_EpochMagnitudes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "seconds",
			in:   "1762427889",
			want: time.Date(2025, 11, 6, 11, 18, 9, 0, time.UTC),
		},
		{
			name: "milliseconds",
			in:   "1762427889459",
			want: time.Date(2025, 11, 6, 11, 18, 9, 459_000_000, time.UTC),
		},
		{
			name: "nanoseconds",
			in:   "1762427889459000000",
			want: time.Date(2025, 11, 6, 11, 18, 9, 459_000_000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tt.in)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve_MillisecondsFormatsAsZ(t *testing.T) {
	t.Parallel()

	got, err := Resolve("1762427889459")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s := FormatUTC(got); s != "2025-11-06T11:18:09.459Z" {
		t.Errorf("FormatUTC = %q, want %q", s, "2025-11-06T11:18:09.459Z")
	}
}

func TestResolve_DateStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01 10:00:00 +0200", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := Resolve(tt.in)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "not a time at all zzz"} {
		if _, err := Resolve(in); err == nil {
			t.Errorf("Resolve(%q) = nil error, want error", in)
		}
	}
}

func TestFormatUTC_RoundTrip(t *testing.T) {
	t.Parallel()

	instants := []time.Time{
		time.Date(2025, 11, 6, 11, 18, 9, 459_000_000, time.UTC),
		time.Date(2025, 11, 6, 11, 18, 9, 0, time.UTC),
		time.Date(2025, 11, 6, 11, 18, 9, 123_456_789, time.UTC),
	}

	for _, want := range instants {
		s := FormatUTC(want)
		if !strings.HasSuffix(s, "Z") {
			t.Errorf("FormatUTC(%v) = %q, want Z suffix", want, s)
		}
		got, err := Resolve(s)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Errorf("round-trip of %v via %q = %v", want, s, got)
		}
	}
}

func TestParseOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"-5m", -5 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"-1d", -24 * time.Hour, false},
		{"30s", 30 * time.Second, false},
		{" 10m ", 10 * time.Minute, false},
		{"5x", 0, true},
		{"m", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseOffset(%q) = nil error, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseOffset(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseOffset(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate_Bounds(t *testing.T) {
	t.Parallel()

	if _, ok := Validate("1762427889459"); !ok {
		t.Error("Validate rejected a sane millisecond epoch")
	}
	// 1970 epoch zero is before the year-2000 bound.
	if _, ok := Validate("0"); ok {
		t.Error("Validate accepted epoch zero")
	}
	// Year 2286 in seconds magnitude.
	if _, ok := Validate("9999999999"); ok {
		t.Error("Validate accepted a timestamp past 2100")
	}
	if _, ok := Validate(""); ok {
		t.Error("Validate accepted empty input")
	}
	if _, ok := Validate("garbage"); ok {
		t.Error("Validate accepted garbage")
	}
}

func TestResolveInput(t *testing.T) {
	t.Parallel()

	const refNanos = "1762414393000000000" // 2025-11-06T07:33:13Z

	tests := []struct {
		name string
		expr string
		ref  string
		want string
	}{
		{"relative with reference", "-5m", refNanos, "2025-11-06T07:28:13Z"},
		{"relative without reference", "-5m", "", "-5m"},
		{"now with reference", "now", refNanos, "2025-11-06T07:33:13Z"},
		{"now without reference", "now", "", "now"},
		{"ago form", "2h ago", refNanos, "2025-11-06T05:33:13Z"},
		{"absolute naive", "2024-01-01T10:00:00", "", "2024-01-01T10:00:00Z"},
		{"unparseable passthrough", "next tuesday-ish", "", "next tuesday-ish"},
		{"invalid reference falls back to passthrough", "-5m", "not-a-ts", "-5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveInput(tt.expr, tt.ref); got != tt.want {
				t.Errorf("ResolveInput(%q, %q) = %q, want %q", tt.expr, tt.ref, got, tt.want)
			}
		})
	}
}

func FuzzResolveInput(f *testing.F) {
	f.Add("-5m", "1762414393000000000")
	f.Add("now", "")
	f.Add("2h ago", "1762427889459")
	f.Add("2024-01-01", "garbage")
	f.Add(string([]byte{0x00, 0xff}), "")

	f.Fuzz(func(_ *testing.T, expr, ref string) {
		// Must not panic.
		_ = ResolveInput(expr, ref)
	})
}
