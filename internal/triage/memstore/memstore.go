// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// Store holds alerts in memory, preserving insertion order. Suitable for
// dev/testing.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert // alert ID -> alert
	order  []string                // insertion order of IDs
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{alerts: make(map[string]*alert.Alert)}
}

// LoadAll returns copies of every stored alert in insertion order.
func (s *Store) LoadAll(_ context.Context) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*alert.Alert, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.alerts[id].Clone())
	}
	return out, nil
}

// Get retrieves an alert by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alert.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	return a.Clone(), true, nil
}

// Upsert stores a copy of the alert, keyed by its ID.
func (s *Store) Upsert(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.alerts[a.ID]; !exists {
		s.order = append(s.order, a.ID)
	}
	s.alerts[a.ID] = a.Clone()
	return nil
}

// ListByClassification returns copies of the alerts in a category, in
// insertion order.
func (s *Store) ListByClassification(_ context.Context, category alert.Category) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*alert.Alert
	for _, id := range s.order {
		if a := s.alerts[id]; a.Classification == category {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// ListByClassificationAndCluster narrows ListByClassification to one cluster.
func (s *Store) ListByClassificationAndCluster(_ context.Context, category alert.Category, clusterLabel string) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*alert.Alert
	for _, id := range s.order {
		if a := s.alerts[id]; a.Classification == category && a.Cluster == clusterLabel {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// ClusterRepresentatives returns the first stored alert of each distinct
// cluster within a category, ordered by cluster label.
func (s *Store) ClusterRepresentatives(_ context.Context, category alert.Category) ([]*alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	firstByCluster := make(map[string]*alert.Alert)
	for _, id := range s.order {
		a := s.alerts[id]
		if a.Classification != category || a.Cluster == "" {
			continue
		}
		if _, seen := firstByCluster[a.Cluster]; !seen {
			firstByCluster[a.Cluster] = a
		}
	}

	labels := make([]string, 0, len(firstByCluster))
	for label := range firstByCluster {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]*alert.Alert, 0, len(labels))
	for _, label := range labels {
		out = append(out, firstByCluster[label].Clone())
	}
	return out, nil
}
