package directory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/docguard/internal/domain"
)

// store is the consumer interface for user records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo reads and writes directory user records stored as Redis hashes.
// It implements access.Directory.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a directory repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// GetUser returns the directory record for a user, or
// domain.ErrUserNotFound when no record exists.
func (r *Repo) GetUser(ctx context.Context, userID string) (*domain.UserRecord, error) {
	key := r.userKey(userID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check user %s: %w", userID, err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrUserNotFound
	}

	return parseFields(userID, fields), nil
}

// PutUser stores or replaces a directory record.
func (r *Repo) PutUser(ctx context.Context, user *domain.UserRecord) error {
	if user.UserID == "" {
		return fmt.Errorf("user record has no user_id")
	}
	if err := r.store.HSet(ctx, r.userKey(user.UserID), buildFields(user)); err != nil {
		return fmt.Errorf("put user %s: %w", user.UserID, err)
	}
	return nil
}

func (r *Repo) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

func buildFields(u *domain.UserRecord) map[string]string {
	return map[string]string{
		"role":                   string(u.Role),
		"department":             u.Department,
		"employee_status":        u.EmployeeStatus,
		"time_in_position":       u.TimeInPosition,
		"employee_join_date":     u.EmployeeJoinDate,
		"last_security_training": u.LastSecurityTraining,
		"location":               u.Location,
		"region":                 u.Region,
		"past_violations":        strconv.Itoa(u.PastViolations),
	}
}

func parseFields(userID string, m map[string]string) *domain.UserRecord {
	violations, _ := strconv.Atoi(m["past_violations"])
	return &domain.UserRecord{
		UserID:               userID,
		Role:                 domain.ParseRole(m["role"]),
		Department:           m["department"],
		EmployeeStatus:       m["employee_status"],
		TimeInPosition:       m["time_in_position"],
		EmployeeJoinDate:     m["employee_join_date"],
		LastSecurityTraining: m["last_security_training"],
		Location:             m["location"],
		Region:               m["region"],
		PastViolations:       violations,
	}
}
