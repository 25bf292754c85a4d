package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

type stubDecider struct {
	decision domain.Decision
	subject  *domain.UserRecord
}

func (s *stubDecider) Decide(context.Context, string, string) (domain.Decision, *domain.UserRecord) {
	return s.decision, s.subject
}

type stubFilter struct {
	dropAll bool
}

func (s *stubFilter) Apply(_ *domain.UserRecord, docs []domain.CandidateDocument) []domain.CandidateDocument {
	if s.dropAll {
		return nil
	}
	return docs
}

type stubRetriever struct {
	docs   []domain.CandidateDocument
	err    error
	called bool
}

func (s *stubRetriever) Search(context.Context, string, int) ([]domain.CandidateDocument, error) {
	s.called = true
	return s.docs, s.err
}

type stubGenerator struct {
	response string
	err      error
}

func (s *stubGenerator) Generate(_ context.Context, contextText, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response + " [ctx:" + contextText + "]", nil
}

type spyAudit struct {
	entries []domain.AuditEntry
	err     error
}

func (s *spyAudit) Record(_ context.Context, entry domain.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

func candidate(source string, score float64) domain.CandidateDocument {
	return domain.CandidateDocument{
		Content:  "content of " + source,
		Metadata: domain.DocumentMetadata{SourceID: "docs/" + source + ".txt"},
		Score:    score,
	}
}

func testConfig() Config {
	return Config{TopK: 5, RelevanceFloor: 0.3, ExcerptLimit: 500}
}

func hrSubject() *domain.UserRecord {
	return &domain.UserRecord{UserID: "emp_hr", Role: domain.RoleUser, Department: "HR"}
}

func TestAnswerDeniedSkipsRetrieval(t *testing.T) {
	retriever := &stubRetriever{}
	audit := &spyAudit{}
	s := New(
		&stubDecider{decision: domain.Denied("no access")},
		&stubFilter{}, retriever, &stubGenerator{}, audit,
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusDenied || ans.Message != "no access" {
		t.Fatalf("answer = %+v", ans)
	}
	if retriever.called {
		t.Error("retrieval ran for a denied decision")
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != domain.StatusDenied {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

func TestAnswerRetrievalFailure(t *testing.T) {
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{},
		&stubRetriever{err: errors.New("index gone")},
		&stubGenerator{}, &spyAudit{},
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusError {
		t.Fatalf("status = %s, want error", ans.Status)
	}
	if ans.Message != "Unable to find matching results in knowledge base." {
		t.Errorf("message = %q", ans.Message)
	}
}

func TestAnswerRelevanceFloor(t *testing.T) {
	retriever := &stubRetriever{docs: []domain.CandidateDocument{
		candidate("low1", 0.1),
		candidate("low2", 0.29),
	}}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{}, retriever, &stubGenerator{}, &spyAudit{},
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusError {
		t.Fatalf("all-below-floor status = %s, want error", ans.Status)
	}
}

func TestAnswerAllFilteredIsDenied(t *testing.T) {
	retriever := &stubRetriever{docs: []domain.CandidateDocument{candidate("a", 0.9)}}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{dropAll: true}, retriever, &stubGenerator{}, &spyAudit{},
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusDenied {
		t.Fatalf("status = %s, want denied", ans.Status)
	}
	if !strings.Contains(ans.Message, "HR department member") {
		t.Errorf("message %q does not name the department", ans.Message)
	}
	if ans.Response != "" || ans.Sources != nil {
		t.Errorf("denied answer carries content: %+v", ans)
	}
}

func TestAnswerHappyPath(t *testing.T) {
	retriever := &stubRetriever{docs: []domain.CandidateDocument{
		candidate("a", 0.9),
		candidate("b", 0.5),
		candidate("c", 0.2), // below floor
	}}
	audit := &spyAudit{}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{}, retriever, &stubGenerator{response: "answer"}, audit,
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusApproved {
		t.Fatalf("status = %s (%s)", ans.Status, ans.Message)
	}
	if ans.Message != "Query processed successfully" {
		t.Errorf("message = %q", ans.Message)
	}
	if !strings.HasPrefix(ans.Response, "answer") {
		t.Errorf("response = %q", ans.Response)
	}
	// Context holds only the documents above the floor, in order.
	if !strings.Contains(ans.Response, "content of a\n\n---\n\ncontent of b") {
		t.Errorf("generation context wrong: %q", ans.Response)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("sources = %+v", ans.Sources)
	}
	if ans.Sources[0].Filename != "a.txt" {
		t.Errorf("source filename = %q", ans.Sources[0].Filename)
	}
	if len(audit.entries) != 1 || audit.entries[0].Status != domain.StatusApproved {
		t.Errorf("audit entries = %+v", audit.entries)
	}
}

func TestAnswerGenerationFailureYieldsApology(t *testing.T) {
	retriever := &stubRetriever{docs: []domain.CandidateDocument{candidate("a", 0.9)}}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{}, retriever,
		&stubGenerator{err: errors.New("model unavailable")},
		&spyAudit{},
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want approved", ans.Status)
	}
	if ans.Response != "Sorry, I encountered an error while generating a response. Please try again later." {
		t.Errorf("response = %q", ans.Response)
	}
	if len(ans.Sources) != 1 {
		t.Errorf("sources = %+v", ans.Sources)
	}
}

func TestAnswerAuditFailureIsSwallowed(t *testing.T) {
	retriever := &stubRetriever{docs: []domain.CandidateDocument{candidate("a", 0.9)}}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{}, retriever, &stubGenerator{response: "answer"},
		&spyAudit{err: errors.New("log store down")},
		testConfig(), zap.NewNop())

	ans := s.Answer(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusApproved {
		t.Fatalf("audit failure changed status: %s", ans.Status)
	}
}

func TestAnswerAuditExcerptTruncated(t *testing.T) {
	long := strings.Repeat("x", 600)
	retriever := &stubRetriever{docs: []domain.CandidateDocument{candidate("a", 0.9)}}
	audit := &spyAudit{}
	s := New(
		&stubDecider{decision: domain.Approved("ok"), subject: hrSubject()},
		&stubFilter{}, retriever, &stubGenerator{response: long}, audit,
		testConfig(), zap.NewNop())

	s.Answer(context.Background(), "emp_hr", "question")
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d", len(audit.entries))
	}
	if got := len([]rune(audit.entries[0].Response)); got != 500 {
		t.Errorf("audit excerpt length = %d, want 500", got)
	}
}

func TestDecideOnly(t *testing.T) {
	audit := &spyAudit{}
	s := New(
		&stubDecider{decision: domain.Approved("department match: HR"), subject: hrSubject()},
		&stubFilter{}, &stubRetriever{}, &stubGenerator{}, audit,
		testConfig(), zap.NewNop())

	ans := s.Decide(context.Background(), "emp_hr", "question")
	if ans.Status != domain.StatusApproved || ans.Response != "" {
		t.Fatalf("answer = %+v", ans)
	}
	if len(audit.entries) != 1 {
		t.Errorf("audit entries = %d", len(audit.entries))
	}
}
