// Package kb retrieves cheat-sheet context for a failure summary: the summary
// is embedded and matched against an indexed knowledge base by vector
// similarity.
package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
)

// DefaultTopK is how many cheat-sheet chunks a lookup returns by default.
const DefaultTopK = 3

// Document is one indexed cheat-sheet chunk.
type Document struct {
	ID      int64
	Title   string
	Content string
}

// Retriever looks up cheat-sheet context relevant to a query.
type Retriever interface {
	Context(ctx context.Context, query string) (string, error)
}

// Embedder turns text into a vector. Implemented by the genai client.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the chunks nearest to a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]Document, error)
}

// Service composes an embedder and a vector store into a Retriever.
type Service struct {
	embedder Embedder
	store    Searcher
	topK     int
	logger   log.Logger
}

// NewService wires an embedder and a vector store. k <= 0 selects DefaultTopK.
func NewService(embedder Embedder, store Searcher, k int, logger log.Logger) *Service {
	if k <= 0 {
		k = DefaultTopK
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{embedder: embedder, store: store, topK: k, logger: logger}
}

// Context embeds the query, runs the similarity search and joins the matched
// chunks into one context string. No matches is not an error; the result is
// simply empty.
func (s *Service) Context(ctx context.Context, query string) (string, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	docs, err := s.store.Search(ctx, vector, s.topK)
	if err != nil {
		return "", fmt.Errorf("search knowledge base: %w", err)
	}
	s.logger.Debug(ctx, "knowledge base searched", "matches", len(docs), "k", s.topK)

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Title != "" {
			parts = append(parts, d.Title+"\n"+d.Content)
			continue
		}
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}
