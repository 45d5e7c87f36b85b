package kb

import (
	"context"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/kb")

//go:embed schema.sql
var schema string

// Store implements Searcher over a pgvector-enabled PostgreSQL pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore applies the knowledge-base schema and returns a ready Store. The
// pool is shared; closing it is the caller's responsibility.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Index inserts one cheat-sheet chunk with its embedding.
func (s *Store) Index(ctx context.Context, title, content string, vector []float32) (int64, error) {
	ctx, span := tracer.Start(ctx, "kb.Index", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	var id int64
	query := `INSERT INTO cheat_sheet_chunks (title, content, embedding) VALUES ($1, $2, $3) RETURNING id`
	err := s.pool.QueryRow(ctx, query, title, content, pgvector.NewVector(vector)).Scan(&id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("insert chunk: %w", err)
	}
	return id, nil
}

// Search returns the k chunks nearest to vector by cosine distance.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]Document, error) {
	ctx, span := tracer.Start(ctx, "kb.Search", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
		attribute.Int("db.query.k", k),
	))
	defer span.End()

	query := `SELECT id, title, content FROM cheat_sheet_chunks ORDER BY embedding <=> $1 LIMIT $2`
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return docs, nil
}
