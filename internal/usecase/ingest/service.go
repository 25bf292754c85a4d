package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

// classifyExcerptLimit bounds how much of a document's head is sent to
// the topic classifier.
const classifyExcerptLimit = 600

// Document is one ingestion request.
type Document struct {
	Source     string
	Filename   string
	Content    string
	Department string // optional declared label, wins over classification
}

// Config holds chunking geometry.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Service splits documents into labeled, overlapping chunks and hands
// them to the chunk store for embedding and indexing.
type Service struct {
	classifier TopicClassifier
	store      ChunkStore
	cfg        Config
	logger     *zap.Logger
}

// New creates the ingestion service.
func New(classifier TopicClassifier, store ChunkStore, cfg Config, logger *zap.Logger) *Service {
	return &Service{classifier: classifier, store: store, cfg: cfg, logger: logger}
}

// Ingest stores one document and returns the number of chunks written.
func (s *Service) Ingest(ctx context.Context, doc Document) (int, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return 0, fmt.Errorf("empty content: %w", domain.ErrInvalidDocument)
	}
	if doc.Source == "" {
		return 0, fmt.Errorf("missing source: %w", domain.ErrInvalidDocument)
	}

	label := s.labelFor(ctx, doc)

	filename := doc.Filename
	if filename == "" {
		if idx := strings.LastIndexByte(doc.Source, '/'); idx >= 0 {
			filename = doc.Source[idx+1:]
		}
	}

	parts := splitText(doc.Content, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.Source, i),
			Content:    part,
			Department: label,
			Source:     doc.Source,
			Filename:   filename,
		}
	}

	if err := s.store.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure index: %w", err)
	}
	if err := s.store.ReplaceChunks(ctx, doc.Source, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Info("document ingested",
		zap.String("source", doc.Source),
		zap.String("department", string(label)),
		zap.Int("chunks", len(chunks)))

	return len(chunks), nil
}

// Rebuild drops and recreates the vector index; stored chunks are
// rescanned into it by the server.
func (s *Service) Rebuild(ctx context.Context) error {
	if err := s.store.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Info("vector index rebuilt")
	return nil
}

// labelFor picks the department label: a declared label wins, otherwise
// the leading excerpt is classified.
func (s *Service) labelFor(ctx context.Context, doc Document) domain.Label {
	if doc.Department != "" {
		return domain.NormalizeDepartment(doc.Department)
	}

	excerpt := doc.Content
	if runes := []rune(excerpt); len(runes) > classifyExcerptLimit {
		excerpt = string(runes[:classifyExcerptLimit])
	}
	return s.classifier.Classify(ctx, excerpt)
}

// splitText produces overlapping windows of at most size runes, breaking
// at the last whitespace in the window when one exists past its midpoint.
func splitText(text string, size, overlap int) []string {
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		cut := end
		if end < len(runes) {
			for i := end - 1; i > start+size/2; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
					cut = i
					break
				}
			}
		}

		if part := strings.TrimSpace(string(runes[start:cut])); part != "" {
			parts = append(parts, part)
		}
		if cut >= len(runes) {
			break
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return parts
}
