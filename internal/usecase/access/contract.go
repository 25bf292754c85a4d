package access

import (
	"context"

	"github.com/kailas-cloud/docguard/internal/domain"
	"github.com/kailas-cloud/docguard/internal/usecase/fallback"
)

// Directory resolves authoritative user records. Implementations return
// domain.ErrUserNotFound for unknown identifiers.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*domain.UserRecord, error)
}

// TopicClassifier assigns department labels to free text and flags
// finance-restricted content.
type TopicClassifier interface {
	Classify(ctx context.Context, text string) domain.Label
	IsSensitive(text string, declared domain.Label) bool
}

// ReferenceDataset resolves raw access-request records for users absent
// from the directory. Implementations return
// domain.ErrReferenceRecordNotFound when no row exists.
type ReferenceDataset interface {
	Lookup(userID string) (fallback.Record, error)
}

// FallbackDecider scores a reference record into a terminal decision.
type FallbackDecider interface {
	Predict(rec fallback.Record) domain.Decision
}
