package access

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
	"github.com/kailas-cloud/docguard/internal/metrics"
)

// Filter removes retrieved documents the subject is not entitled to see.
// It is stable: survivors keep their relative retrieval order.
type Filter struct {
	classifier TopicClassifier
	logger     *zap.Logger
}

// NewFilter builds the per-document access filter. It shares the
// sensitivity predicate with the query-level gate so both apply
// identical semantics.
func NewFilter(classifier TopicClassifier, logger *zap.Logger) *Filter {
	return &Filter{classifier: classifier, logger: logger}
}

// Apply filters candidates for a subject. Admins pass everything
// unchanged. A nil subject is treated as a regular user with no
// department, so finance-restricted documents are always dropped.
func (f *Filter) Apply(subject *domain.UserRecord, docs []domain.CandidateDocument) []domain.CandidateDocument {
	if subject.IsAdmin() {
		return docs
	}

	allowed := docs[:0:0]
	for _, doc := range docs {
		if f.classifier.IsSensitive(doc.Content, doc.Metadata.Department) &&
			!subject.InDepartment(domain.DeptFinance) {
			metrics.DocumentsFilteredTotal.WithLabelValues("finance_restricted").Inc()
			f.logger.Debug("document filtered",
				zap.String("source_id", doc.Metadata.SourceID),
				zap.String("label", string(doc.Metadata.Department)))
			continue
		}
		allowed = append(allowed, doc)
	}
	return allowed
}
