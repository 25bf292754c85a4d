package query

import (
	"context"

	"github.com/kailas-cloud/docguard/internal/domain"
)

// Decider produces the pre-retrieval access decision and the resolved
// subject record.
type Decider interface {
	Decide(ctx context.Context, userID, query string) (domain.Decision, *domain.UserRecord)
}

// DocumentFilter removes documents the subject may not see, preserving
// order.
type DocumentFilter interface {
	Apply(subject *domain.UserRecord, docs []domain.CandidateDocument) []domain.CandidateDocument
}

// Retriever returns the k nearest documents for a query text, most
// relevant first, with scores in [0,1]. Embedding is the retriever's
// concern.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.CandidateDocument, error)
}

// Generator produces prose grounded in the supplied context documents.
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
}

// AuditRecorder appends a decision record. Failures must be swallowed by
// the caller; they never affect the returned answer.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}
