package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestNormalizeOutliers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{"no outliers", []int{0, 1, 0, 2}, []int{0, 1, 0, 2}},
		{"single outlier", []int{0, -1, 1}, []int{0, 2, 1}},
		{"each outlier gets its own cluster", []int{-1, -1, 0}, []int{1, 2, 0}},
		{"all outliers", []int{-1, -1}, []int{0, 1}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeOutliers(append([]int(nil), tt.in...))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeOutliers(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestServiceLabeler(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/label" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req labelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Errorf("got %d messages, want 3", len(req.Messages))
		}
		json.NewEncoder(w).Encode(labelResponse{Labels: []int{0, -1, 0}})
	}))
	defer srv.Close()

	l := NewServiceLabeler(srv.URL, nil)
	got, err := l.Label(context.Background(), []string{"a", "b", "a"})
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	// The outlier becomes its own singleton cluster.
	want := []string{"0", "1", "0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labels = %v, want %v", got, want)
	}
}

func TestServiceLabeler_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(labelResponse{Labels: []int{0}})
	}))
	defer srv.Close()

	l := NewServiceLabeler(srv.URL, nil)
	if _, err := l.Label(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on label count mismatch")
	}
}

func TestServiceLabeler_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewServiceLabeler(srv.URL, nil)
	if _, err := l.Label(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestServiceLabeler_Empty(t *testing.T) {
	t.Parallel()

	l := NewServiceLabeler("http://unreachable.invalid", nil)
	got, err := l.Label(context.Background(), nil)
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if got != nil {
		t.Errorf("labels = %v, want nil", got)
	}
}

func TestLocalLabeler(t *testing.T) {
	t.Parallel()

	l := NewLocalLabeler()
	got, err := l.Label(context.Background(), []string{
		"fatal: [host1]: FAILED! => connection timed out after 30s",
		"fatal: [host2]: FAILED! => connection timed out after 45s",
		"fatal: [host1]: FAILED! => no space left on device",
	})
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	if got[0] != got[1] {
		t.Errorf("same failure signature labeled %q and %q", got[0], got[1])
	}
	if got[0] == got[2] {
		t.Errorf("distinct failures share label %q", got[0])
	}
}

func TestLocalLabeler_Deterministic(t *testing.T) {
	t.Parallel()

	msgs := []string{"err a", "err b", "err a"}
	l := NewLocalLabeler()
	first, _ := l.Label(context.Background(), msgs)
	second, _ := l.Label(context.Background(), msgs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("labels differ across runs: %v vs %v", first, second)
	}
}
