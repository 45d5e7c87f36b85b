package triage

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/cluster"
)

// SubmitResult is the outcome of submitting a single alert for triage.
type SubmitResult struct {
	ID string
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Alerts         int      `json:"alerts"`
	Clusters       int      `json:"clusters"`
	FailedClusters []string `json:"failed_clusters,omitempty"`
	StoreErrors    int      `json:"store_errors,omitempty"`
}

// Notifier delivers solved alerts to an external channel.
type Notifier interface {
	Send(ctx context.Context, a *alert.Alert) error
}

// Service is the business boundary for triage operations: batch runs over the
// stored alert set, single-alert submissions, and read queries.
type Service struct {
	store    Store
	engine   *Engine
	coord    *Coordinator
	labeler  cluster.Labeler
	metrics  *Metrics
	notifier Notifier
	logger   log.Logger
}

// NewService wires the triage service. metrics and notifier may be nil.
func NewService(store Store, engine *Engine, coord *Coordinator, labeler cluster.Labeler, metrics *Metrics, notifier Notifier, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		coord:    coord,
		labeler:  labeler,
		metrics:  metrics,
		notifier: notifier,
		logger:   logger,
	}
}

// RunBatch loads every stored alert, deduplicates by cluster label, runs the
// pipeline once per cluster, broadcasts the results and persists the full
// alert set. Cluster failures are isolated; their members keep pre-pipeline
// values and the batch continues.
func (s *Service) RunBatch(ctx context.Context) (*BatchResult, error) {
	start := time.Now()

	alerts, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return &BatchResult{}, nil
	}

	messages := make([]string, len(alerts))
	for i, a := range alerts {
		messages[i] = a.LogEntry.Message
	}
	labels, err := s.labeler.Label(ctx, messages)
	if err != nil {
		return nil, err
	}

	representatives, err := s.coord.Assign(alerts, labels)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "batch assigned",
		"alerts", len(alerts),
		"clusters", len(representatives),
	)

	results := s.coord.RunOnce(ctx, representatives)
	s.coord.Broadcast(alerts, labels, results)

	var failed []string
	for label := range representatives {
		if _, ok := results[label]; !ok {
			failed = append(failed, label)
		}
	}

	storeErrors := s.upsertAll(ctx, alerts)

	// one notification per solved cluster, not per member
	for label, rep := range results {
		s.notify(ctx, rep, "cluster", label)
	}

	res := &BatchResult{
		Alerts:         len(alerts),
		Clusters:       len(representatives),
		FailedClusters: failed,
		StoreErrors:    storeErrors,
	}
	if s.metrics != nil {
		s.metrics.ObserveBatch(res, time.Since(start).Seconds())
	}
	s.logger.Info(ctx, "batch complete",
		"alerts", res.Alerts,
		"clusters", res.Clusters,
		"failed_clusters", len(res.FailedClusters),
		"store_errors", res.StoreErrors,
		"duration_s", time.Since(start).Seconds(),
	)
	return res, nil
}

// upsertAll persists the full alert set concurrently, one upsert per alert,
// and returns how many failed.
func (s *Service) upsertAll(ctx context.Context, alerts []*alert.Alert) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, a := range alerts {
		wg.Add(1)
		go func(a *alert.Alert) {
			defer wg.Done()
			a.UpdatedAt = time.Now().UTC()
			if err := s.store.Upsert(ctx, a); err != nil {
				s.logger.Error(ctx, err, "alert upsert failed", "alert_id", a.ID)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()
	return failed
}

// Submit stores a new alert and kicks off its triage asynchronously. Single
// submissions carry no batch, so no cluster is assigned.
func (s *Service) Submit(ctx context.Context, entry alert.LogEntry) (*SubmitResult, error) {
	id := ulid.Make().String()
	a := &alert.Alert{
		ID:        id,
		LogEntry:  entry,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, a); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SubmitsTotal.Inc()
	}

	// pass only the ID so the goroutine never shares the caller's pointer
	go s.runTriage(context.WithoutCancel(ctx), id)

	return &SubmitResult{ID: id}, nil
}

func (s *Service) runTriage(ctx context.Context, id string) {
	L := s.logger.With("alert_id", id)
	start := time.Now()

	a, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch alert for triage")
		return
	}

	runErr := s.engine.Run(ctx, a)
	status := "complete"
	if runErr != nil {
		status = "failed"
		L.Error(ctx, runErr, "triage failed")
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(status, time.Since(start).Seconds())
	}
	if runErr != nil {
		return
	}

	a.UpdatedAt = time.Now().UTC()
	if err := s.store.Upsert(ctx, a); err != nil {
		L.Error(ctx, err, "failed to persist triage result")
	}
	s.notify(ctx, a, "alert_id", a.ID)
}

func (s *Service) notify(ctx context.Context, a *alert.Alert, args ...any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, a); err != nil {
		s.logger.Warn(ctx, "notification failed", append(args, "error", err)...)
	}
}

// Get retrieves one alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*alert.Alert, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns every stored alert.
func (s *Service) List(ctx context.Context) ([]*alert.Alert, error) {
	return s.store.LoadAll(ctx)
}

// ListByClassification returns the alerts assigned to one expert category.
func (s *Service) ListByClassification(ctx context.Context, category alert.Category) ([]*alert.Alert, error) {
	return s.store.ListByClassification(ctx, category)
}

// ListByClassificationAndCluster narrows ListByClassification to one cluster.
func (s *Service) ListByClassificationAndCluster(ctx context.Context, category alert.Category, clusterLabel string) ([]*alert.Alert, error) {
	return s.store.ListByClassificationAndCluster(ctx, category, clusterLabel)
}

// ClusterRepresentatives returns one alert per distinct cluster within a
// category.
func (s *Service) ClusterRepresentatives(ctx context.Context, category alert.Category) ([]*alert.Alert, error) {
	return s.store.ClusterRepresentatives(ctx, category)
}
