// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/remedy/internal/alert"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is shared;
// closing it is the caller's responsibility.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const alertColumns = `id, log_timestamp, log_message, log_labels, log_summary,
	expert_classification, log_cluster, need_more_context, context_for_solution,
	step_by_step_solution, created_at, updated_at`

// LoadAll returns every stored alert in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.LoadAll", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at, id`
	return s.queryAlerts(ctx, span, query)
}

// Get retrieves an alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*alert.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	return a, true, nil
}

// Upsert inserts or replaces the alert row with the same ID.
func (s *Store) Upsert(ctx context.Context, a *alert.Alert) error {
	ctx, span := tracer.Start(ctx, "pgstore.Upsert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	labelsJSON, err := json.Marshal(a.LogEntry.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() {
		updatedAt = &a.UpdatedAt
	}

	query := `INSERT INTO alerts (
		id, log_timestamp, log_message, log_labels, log_summary,
		expert_classification, log_cluster, need_more_context,
		context_for_solution, step_by_step_solution, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	ON CONFLICT (id) DO UPDATE SET
		log_summary           = EXCLUDED.log_summary,
		expert_classification = EXCLUDED.expert_classification,
		log_cluster           = EXCLUDED.log_cluster,
		need_more_context     = EXCLUDED.need_more_context,
		context_for_solution  = EXCLUDED.context_for_solution,
		step_by_step_solution = EXCLUDED.step_by_step_solution,
		updated_at            = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		a.ID, a.LogEntry.Timestamp, a.LogEntry.Message, labelsJSON, a.Summary,
		string(a.Classification), a.Cluster, a.NeedMoreContext,
		a.SolutionContext, a.Solution, a.CreatedAt, updatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

// ListByClassification returns the alerts in a category, in insertion order.
func (s *Store) ListByClassification(ctx context.Context, category alert.Category) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListByClassification", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE expert_classification = $1 ORDER BY created_at, id`
	return s.queryAlerts(ctx, span, query, string(category))
}

// ListByClassificationAndCluster narrows ListByClassification to one cluster.
func (s *Store) ListByClassificationAndCluster(ctx context.Context, category alert.Category, clusterLabel string) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ListByClassificationAndCluster", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE expert_classification = $1 AND log_cluster = $2 ORDER BY created_at, id`
	return s.queryAlerts(ctx, span, query, string(category), clusterLabel)
}

// ClusterRepresentatives returns the first stored alert of each distinct
// cluster within a category, ordered by cluster label.
func (s *Store) ClusterRepresentatives(ctx context.Context, category alert.Category) ([]*alert.Alert, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ClusterRepresentatives", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT DISTINCT ON (log_cluster) ` + alertColumns + ` FROM alerts
		WHERE expert_classification = $1 AND log_cluster <> ''
		ORDER BY log_cluster, created_at, id`
	return s.queryAlerts(ctx, span, query, string(category))
}

func (s *Store) queryAlerts(ctx context.Context, span trace.Span, query string, args ...any) ([]*alert.Alert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (*alert.Alert, error) {
	var (
		a          alert.Alert
		labelsJSON []byte
		updatedAt  *time.Time
	)
	err := row.Scan(
		&a.ID, &a.LogEntry.Timestamp, &a.LogEntry.Message, &labelsJSON, &a.Summary,
		&a.Classification, &a.Cluster, &a.NeedMoreContext, &a.SolutionContext,
		&a.Solution, &a.CreatedAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	if err := json.Unmarshal(labelsJSON, &a.LogEntry.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	if updatedAt != nil {
		a.UpdatedAt = *updatedAt
	}
	return &a, nil
}
