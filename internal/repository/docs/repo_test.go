package docs

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/docguard/internal/db"
	"github.com/kailas-cloud/docguard/internal/domain"
)

type fakeStore struct {
	indexes   map[string]bool
	values    map[string][]byte
	deleted   []string
	items     []db.HashSetItem
	searchRes *db.SearchResult
	searchErr error
	lastQuery *db.KNNQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		indexes: make(map[string]bool),
		values:  make(map[string][]byte),
	}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if f.indexes[def.Name] {
		return db.ErrIndexExists
	}
	f.indexes[def.Name] = true
	return nil
}

func (f *fakeStore) DropIndex(_ context.Context, name string) error {
	if !f.indexes[name] {
		return db.ErrIndexNotFound
	}
	delete(f.indexes, name)
	return nil
}

func (f *fakeStore) IndexExists(_ context.Context, name string) (bool, error) {
	return f.indexes[name], nil
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.lastQuery = q
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchRes, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func testRepo(s *fakeStore, e *fakeEmbedder) *Repo {
	return New(s, e, Config{
		KeyPrefix:       "docguard:",
		Dimensions:      3,
		HNSWM:           32,
		HNSWEFConstruct: 400,
	})
}

func TestEnsureIndexIdempotent(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{})

	for i := 0; i < 2; i++ {
		if err := repo.EnsureIndex(context.Background()); err != nil {
			t.Fatalf("EnsureIndex #%d: %v", i+1, err)
		}
	}
	if !store.indexes["docguard:chunk:idx"] {
		t.Fatal("index not created")
	}
}

func TestRebuildIndex(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{})

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := repo.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if !store.indexes["docguard:chunk:idx"] {
		t.Fatal("index missing after rebuild")
	}
}

func TestRebuildIndexWithoutExisting(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{})

	// nothing to drop yet: the missing-index error must be tolerated
	if err := repo.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if !store.indexes["docguard:chunk:idx"] {
		t.Fatal("index not created")
	}
}

func TestReplaceChunks(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	repo := testRepo(store, emb)

	chunks := []domain.Chunk{
		{ID: "a:0", Content: "first", Department: domain.DeptHR, Source: "docs/a.txt", Filename: "a.txt"},
		{ID: "a:1", Content: "second", Department: domain.DeptHR, Source: "docs/a.txt", Filename: "a.txt"},
	}
	if err := repo.ReplaceChunks(context.Background(), "a", chunks); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if emb.calls != 2 {
		t.Errorf("embedder calls = %d, want 2", emb.calls)
	}
	if len(store.items) != 2 {
		t.Fatalf("stored items = %d", len(store.items))
	}
	if store.items[0].Key != "docguard:chunk:a:0" {
		t.Errorf("key = %q", store.items[0].Key)
	}
	fields := store.items[0].Fields
	if fields["department"] != "HR" || fields["__content"] != "first" {
		t.Errorf("fields = %v", fields)
	}
	if len(fields["__vector"]) != 12 {
		t.Errorf("vector bytes = %d, want 12", len(fields["__vector"]))
	}
	if got := string(store.values["docguard:chunksrc:a"]); got != "2" {
		t.Errorf("chunk count = %q, want 2", got)
	}
	if len(store.deleted) != 0 {
		t.Errorf("unexpected deletions: %v", store.deleted)
	}
}

func TestReplaceChunksRemovesStaleTail(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{})

	// previous ingest of this source wrote four chunks
	store.values["docguard:chunksrc:a"] = []byte("4")

	chunks := []domain.Chunk{
		{ID: "a:0", Content: "shorter now", Source: "a"},
		{ID: "a:1", Content: "than before", Source: "a"},
	}
	if err := repo.ReplaceChunks(context.Background(), "a", chunks); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}

	want := []string{"docguard:chunk:a:2", "docguard:chunk:a:3"}
	if len(store.deleted) != len(want) {
		t.Fatalf("deleted = %v, want %v", store.deleted, want)
	}
	for i, key := range want {
		if store.deleted[i] != key {
			t.Errorf("deleted[%d] = %q, want %q", i, store.deleted[i], key)
		}
	}
	if got := string(store.values["docguard:chunksrc:a"]); got != "2" {
		t.Errorf("chunk count = %q, want 2", got)
	}
}

func TestReplaceChunksGarbageCountTreatedAsNew(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{})
	store.values["docguard:chunksrc:a"] = []byte("not a number")

	err := repo.ReplaceChunks(context.Background(), "a", []domain.Chunk{{ID: "a:0", Content: "x", Source: "a"}})
	if err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	if len(store.deleted) != 0 {
		t.Errorf("unexpected deletions: %v", store.deleted)
	}
}

func TestReplaceChunksEmbedFailure(t *testing.T) {
	store := newFakeStore()
	repo := testRepo(store, &fakeEmbedder{err: errors.New("provider down")})
	store.values["docguard:chunksrc:a"] = []byte("3")

	err := repo.ReplaceChunks(context.Background(), "a", []domain.Chunk{{ID: "a:0", Content: "x", Source: "a"}})
	if err == nil {
		t.Fatal("expected error")
	}
	// a failed embed must leave existing chunks untouched
	if len(store.deleted) != 0 || len(store.items) != 0 {
		t.Errorf("store touched after embed failure: deleted=%v items=%d", store.deleted, len(store.items))
	}
}

func TestSearch(t *testing.T) {
	store := newFakeStore()
	store.searchRes = &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key:   "docguard:chunk:a:0",
			Score: 0.87,
			Fields: map[string]string{
				"__content":  "first chunk",
				"department": "Finance",
				"source":     "docs/a.txt",
				"filename":   "a.txt",
			},
		}},
	}
	repo := testRepo(store, &fakeEmbedder{})

	docs, err := repo.Search(context.Background(), "quarterly numbers", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs = %d", len(docs))
	}
	got := docs[0]
	if got.Metadata.Department != domain.DeptFinance || got.Score != 0.87 {
		t.Errorf("doc = %+v", got)
	}
	if store.lastQuery.K != 5 || store.lastQuery.IndexName != "docguard:chunk:idx" {
		t.Errorf("query = %+v", store.lastQuery)
	}
}

func TestSearchIndexMissing(t *testing.T) {
	store := newFakeStore()
	store.searchErr = db.ErrIndexNotFound
	repo := testRepo(store, &fakeEmbedder{})

	_, err := repo.Search(context.Background(), "anything", 5)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}
}
