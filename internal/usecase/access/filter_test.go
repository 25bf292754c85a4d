package access

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

func doc(sourceID, content string, dept domain.Label) domain.CandidateDocument {
	return domain.CandidateDocument{
		Content: content,
		Metadata: domain.DocumentMetadata{
			Department: dept,
			SourceID:   sourceID,
		},
		Score: 0.9,
	}
}

func TestFilterAdminPassesEverything(t *testing.T) {
	f := NewFilter(&stubClassifier{}, zap.NewNop())
	docs := []domain.CandidateDocument{
		doc("a", "earnings overview", domain.DeptFinance),
		doc("b", "onboarding guide", domain.DeptHR),
	}

	got := f.Apply(adminUser(), docs)
	if len(got) != 2 {
		t.Fatalf("admin kept %d docs, want 2", len(got))
	}
}

func TestFilterDropsFinanceForNonFinance(t *testing.T) {
	f := NewFilter(&stubClassifier{}, zap.NewNop())
	docs := []domain.CandidateDocument{
		doc("a", "plain onboarding guide", domain.DeptHR),
		doc("b", "quarterly earnings summary", domain.DeptGeneral),
		doc("c", "labeled finance doc", domain.DeptFinance),
		doc("d", "travel policy", domain.DeptHR),
	}

	got := f.Apply(hrUser(), docs)
	if len(got) != 2 {
		t.Fatalf("kept %d docs, want 2", len(got))
	}
	// Stable: survivors keep input order.
	if got[0].Metadata.SourceID != "a" || got[1].Metadata.SourceID != "d" {
		t.Errorf("survivor order = %s, %s", got[0].Metadata.SourceID, got[1].Metadata.SourceID)
	}
}

func TestFilterFinanceUserKeepsFinanceDocs(t *testing.T) {
	f := NewFilter(&stubClassifier{}, zap.NewNop())
	finUser := &domain.UserRecord{UserID: "emp_fin", Role: domain.RoleUser, Department: "Finance"}
	docs := []domain.CandidateDocument{
		doc("a", "quarterly earnings summary", domain.DeptFinance),
	}

	got := f.Apply(finUser, docs)
	if len(got) != 1 {
		t.Fatalf("kept %d docs, want 1", len(got))
	}
}

func TestFilterNilSubjectDropsRestricted(t *testing.T) {
	f := NewFilter(&stubClassifier{}, zap.NewNop())
	docs := []domain.CandidateDocument{
		doc("a", "quarterly earnings summary", domain.DeptGeneral),
		doc("b", "cafeteria menu", domain.DeptGeneral),
	}

	got := f.Apply(nil, docs)
	if len(got) != 1 || got[0].Metadata.SourceID != "b" {
		t.Fatalf("nil subject kept %v", got)
	}
}

func TestFilterEmptyInput(t *testing.T) {
	f := NewFilter(&stubClassifier{}, zap.NewNop())
	if got := f.Apply(hrUser(), nil); len(got) != 0 {
		t.Fatalf("kept %d docs from nil input", len(got))
	}
}
