package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

type stubClassifier struct {
	label    domain.Label
	lastText string
}

func (s *stubClassifier) Classify(_ context.Context, text string) domain.Label {
	s.lastText = text
	return s.label
}

type fakeChunkStore struct {
	ensured    int
	rebuilt    int
	lastSource string
	chunks     []domain.Chunk
	storeErr   error
	rebuildErr error
}

func (f *fakeChunkStore) EnsureIndex(context.Context) error {
	f.ensured++
	return nil
}

func (f *fakeChunkStore) RebuildIndex(context.Context) error {
	if f.rebuildErr != nil {
		return f.rebuildErr
	}
	f.rebuilt++
	return nil
}

func (f *fakeChunkStore) ReplaceChunks(_ context.Context, source string, chunks []domain.Chunk) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.lastSource = source
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func testService(cls *stubClassifier, store *fakeChunkStore) *Service {
	return New(cls, store, Config{ChunkSize: 100, ChunkOverlap: 20}, zap.NewNop())
}

func TestIngestClassifiesExcerpt(t *testing.T) {
	cls := &stubClassifier{label: domain.DeptHR}
	store := &fakeChunkStore{}
	s := testService(cls, store)

	n, err := s.Ingest(context.Background(), Document{
		Source:  "docs/handbook.txt",
		Content: "Employee onboarding and benefits overview.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 1 || len(store.chunks) != 1 {
		t.Fatalf("chunks = %d", len(store.chunks))
	}
	c := store.chunks[0]
	if c.Department != domain.DeptHR {
		t.Errorf("department = %s", c.Department)
	}
	if c.ID != "docs/handbook.txt:0" || c.Filename != "handbook.txt" {
		t.Errorf("chunk = %+v", c)
	}
	if store.ensured != 1 {
		t.Errorf("EnsureIndex calls = %d", store.ensured)
	}
	if store.lastSource != "docs/handbook.txt" {
		t.Errorf("replaced source = %q", store.lastSource)
	}
}

func TestRebuild(t *testing.T) {
	store := &fakeChunkStore{}
	s := testService(&stubClassifier{}, store)

	if err := s.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if store.rebuilt != 1 {
		t.Errorf("RebuildIndex calls = %d", store.rebuilt)
	}

	store.rebuildErr = errors.New("search module gone")
	if err := s.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestIngestDeclaredLabelWins(t *testing.T) {
	cls := &stubClassifier{label: domain.DeptHR}
	store := &fakeChunkStore{}
	s := testService(cls, store)

	_, err := s.Ingest(context.Background(), Document{
		Source:     "docs/budget.txt",
		Content:    "numbers and more numbers",
		Department: "financial",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if store.chunks[0].Department != domain.DeptFinance {
		t.Errorf("department = %s", store.chunks[0].Department)
	}
	if cls.lastText != "" {
		t.Error("classifier ran despite declared label")
	}
}

func TestIngestRejectsInvalid(t *testing.T) {
	s := testService(&stubClassifier{}, &fakeChunkStore{})

	_, err := s.Ingest(context.Background(), Document{Source: "a", Content: "   "})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("empty content err = %v", err)
	}
	_, err = s.Ingest(context.Background(), Document{Content: "text"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("missing source err = %v", err)
	}
}

func TestIngestLongDocumentChunks(t *testing.T) {
	cls := &stubClassifier{label: domain.DeptGeneral}
	store := &fakeChunkStore{}
	s := testService(cls, store)

	content := strings.Repeat("operational workflow details ", 30) // ~870 chars
	n, err := s.Ingest(context.Background(), Document{Source: "docs/ops.txt", Content: content})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n < 2 {
		t.Fatalf("chunks = %d, want several", n)
	}
	for i, c := range store.chunks {
		if len([]rune(c.Content)) > 100 {
			t.Errorf("chunk %d length %d exceeds size", i, len(c.Content))
		}
	}
}

func TestSplitTextProperties(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 20)
	parts := splitText(text, 50, 10)

	if len(parts) < 2 {
		t.Fatalf("parts = %d", len(parts))
	}
	for i, p := range parts {
		if p == "" {
			t.Errorf("part %d is empty", i)
		}
		if len([]rune(p)) > 50 {
			t.Errorf("part %d length %d exceeds window", i, len(p))
		}
	}

	// Short input passes through whole.
	if got := splitText("tiny", 50, 10); len(got) != 1 || got[0] != "tiny" {
		t.Errorf("short input = %v", got)
	}
	// Degenerate settings never loop forever.
	if got := splitText(text, 10, 10); len(got) == 0 {
		t.Error("zero-step settings produced nothing")
	}
}
