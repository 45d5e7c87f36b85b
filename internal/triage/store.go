package triage

import (
	"context"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// Store is the persistence interface for triaged alerts.
type Store interface {
	// LoadAll returns every stored alert in insertion order.
	LoadAll(ctx context.Context) ([]*alert.Alert, error)

	// Get retrieves one alert by ID.
	Get(ctx context.Context, id string) (*alert.Alert, bool, error)

	// Upsert inserts the alert or replaces the stored version with the
	// same ID.
	Upsert(ctx context.Context, a *alert.Alert) error

	// ListByClassification returns the alerts assigned to one expert
	// category.
	ListByClassification(ctx context.Context, category alert.Category) ([]*alert.Alert, error)

	// ListByClassificationAndCluster narrows ListByClassification to one
	// cluster label.
	ListByClassificationAndCluster(ctx context.Context, category alert.Category, clusterLabel string) ([]*alert.Alert, error)

	// ClusterRepresentatives returns one alert per distinct cluster within
	// a category: the first stored member of each cluster, ordered by
	// cluster label.
	ClusterRepresentatives(ctx context.Context, category alert.Category) ([]*alert.Alert, error)
}
