package ingest

import (
	"context"

	"github.com/kailas-cloud/docguard/internal/domain"
)

// TopicClassifier labels a document excerpt with a department.
type TopicClassifier interface {
	Classify(ctx context.Context, text string) domain.Label
}

// ChunkStore persists labeled chunks and owns the vector index.
// ReplaceChunks supersedes any chunks an earlier ingest of the same
// source wrote.
type ChunkStore interface {
	EnsureIndex(ctx context.Context) error
	RebuildIndex(ctx context.Context) error
	ReplaceChunks(ctx context.Context, source string, chunks []domain.Chunk) error
}
