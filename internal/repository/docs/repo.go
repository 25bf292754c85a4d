package docs

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/docguard/internal/db"
	"github.com/kailas-cloud/docguard/internal/domain"
)

// store is the consumer interface for chunk storage and search (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// embedder computes the vector for one text.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds index geometry for the chunk store.
type Config struct {
	KeyPrefix       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo stores document chunks as Redis hashes under one HNSW-indexed
// prefix and retrieves them by vector similarity. It implements
// query.Retriever and the ingest chunk store.
type Repo struct {
	store    store
	embedder embedder
	cfg      Config
}

// New creates a document chunk repository.
func New(s store, e embedder, cfg Config) *Repo {
	return &Repo{store: s, embedder: e, cfg: cfg}
}

// EnsureIndex creates the chunk index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateIndex(ctx, r.indexDefinition()); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// RebuildIndex drops and recreates the chunk index. Stored chunk hashes
// survive the drop, so the server rescans them into the fresh index; use
// this after changing index geometry (dimensions, HNSW parameters).
func (r *Repo) RebuildIndex(ctx context.Context) error {
	name := r.indexName()

	if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", name, err)
	}
	if err := r.store.CreateIndex(ctx, r.indexDefinition()); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

func (r *Repo) indexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.chunkPrefix()},
		Fields: []db.IndexField{
			{Name: "department", Type: db.IndexFieldTag},
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "__content", Alias: "content", Type: db.IndexFieldText},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.cfg.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.cfg.HNSWM,
				VectorEFConstruct: r.cfg.HNSWEFConstruct,
			},
		},
	}
}

// ReplaceChunks embeds and persists a source's chunks in one pipelined
// write, then removes any chunks a previous, longer ingest of the same
// source left behind. A per-source count key tracks how many chunks the
// last ingest wrote.
func (r *Repo) ReplaceChunks(ctx context.Context, source string, chunks []domain.Chunk) error {
	items := make([]db.HashSetItem, 0, len(chunks))
	for _, c := range chunks {
		vector, err := r.embedder.Embed(ctx, c.Content)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		items = append(items, db.HashSetItem{
			Key:    r.chunkPrefix() + c.ID,
			Fields: buildChunkFields(&c, vector),
		})
	}

	prev, err := r.chunkCount(ctx, source)
	if err != nil {
		return err
	}

	if len(items) > 0 {
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
	}

	for i := len(chunks); i < prev; i++ {
		key := fmt.Sprintf("%s%s:%d", r.chunkPrefix(), source, i)
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete stale chunk %s: %w", key, err)
		}
	}

	if err := r.store.Set(ctx, r.sourceKey(source), []byte(strconv.Itoa(len(chunks)))); err != nil {
		return fmt.Errorf("record chunk count for %s: %w", source, err)
	}
	return nil
}

// chunkCount reads how many chunks the previous ingest of source wrote;
// a source never seen before counts as zero.
func (r *Repo) chunkCount(ctx context.Context, source string) (int, error) {
	raw, err := r.store.Get(ctx, r.sourceKey(source))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read chunk count for %s: %w", source, err)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// Search embeds the query and returns the k nearest chunks, most similar
// first.
func (r *Repo) Search(ctx context.Context, query string, k int) ([]domain.CandidateDocument, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__content", "department", "source", "filename", "__vector_score"},
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrIndexUnavailable
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	docs := make([]domain.CandidateDocument, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docs = append(docs, domain.CandidateDocument{
			Content: entry.Fields["__content"],
			Metadata: domain.DocumentMetadata{
				Department: domain.Label(entry.Fields["department"]),
				SourceID:   entry.Fields["source"],
				Filename:   entry.Fields["filename"],
			},
			Score: entry.Score,
		})
	}
	return docs, nil
}

func (r *Repo) indexName() string {
	return r.cfg.KeyPrefix + "chunk:idx"
}

func (r *Repo) chunkPrefix() string {
	return r.cfg.KeyPrefix + "chunk:"
}

// sourceKey lives outside the chunk prefix so the FT index never scans it.
func (r *Repo) sourceKey(source string) string {
	return r.cfg.KeyPrefix + "chunksrc:" + source
}

func buildChunkFields(c *domain.Chunk, vector []float32) map[string]string {
	return map[string]string{
		"__content":  c.Content,
		"__vector":   vectorToBytes(vector),
		"department": string(c.Department),
		"source":     c.Source,
		"filename":   c.Filename,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per
// float, little-endian), the layout FT.SEARCH expects for hash vectors.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
