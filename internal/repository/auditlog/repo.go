package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/docguard/internal/domain"
)

// store is the consumer interface for audit entries (ISP).
type store interface {
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo appends decision audit entries as JSON values. Keys carry the user
// id and a nanosecond timestamp, so entries are unique and time-ordered
// per user. A positive ttl bounds retention; zero keeps entries forever.
// It implements query.AuditRecorder.
type Repo struct {
	store     store
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// New creates an audit log repository.
func New(s store, keyPrefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, ttl: ttl, now: time.Now}
}

type entryDTO struct {
	domain.AuditEntry
	RecordedAt string `json:"recorded_at"`
}

// Record appends one audit entry.
func (r *Repo) Record(ctx context.Context, entry domain.AuditEntry) error {
	ts := r.now().UTC()

	data, err := json.Marshal(entryDTO{
		AuditEntry: entry,
		RecordedAt: ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	key := r.keyPrefix + "audit:" + entry.UserID + ":" + strconv.FormatInt(ts.UnixNano(), 10)
	if r.ttl > 0 {
		err = r.store.SetWithTTL(ctx, key, data, r.ttl)
	} else {
		err = r.store.Set(ctx, key, data)
	}
	if err != nil {
		return fmt.Errorf("store audit entry: %w", err)
	}
	return nil
}
