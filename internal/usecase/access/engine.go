package access

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
	"github.com/kailas-cloud/docguard/internal/metrics"
	"github.com/kailas-cloud/docguard/internal/usecase/fallback"
)

// Engine evaluates the ordered authorization gates for a (user, query)
// pair. All collaborators are injected; the engine holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	directory    Directory
	classifier   TopicClassifier
	dataset      ReferenceDataset
	fallback     FallbackDecider
	allowUnknown bool
	logger       *zap.Logger

	gates []gate
}

// Options tunes engine policy. Dataset and Fallback are optional as a
// pair: when either is nil the identity gate never consults the other.
type Options struct {
	Dataset  ReferenceDataset
	Fallback FallbackDecider
	// AllowUnknownUsers grants default access to users absent from both
	// the directory and the reference dataset. Off means fail closed.
	AllowUnknownUsers bool
}

// request carries per-evaluation state between gates. The identity gate
// resolves Subject; later gates rely on it being non-nil.
type request struct {
	userID  string
	query   string
	subject *domain.UserRecord
}

// gate is one ordered authorization check. A nil return falls through to
// the next gate; a non-nil return is the terminal decision.
type gate struct {
	name  string
	check func(ctx context.Context, req *request) *domain.Decision
}

// New builds the engine with its fixed gate order: identity, admin
// override, sensitivity, department match.
func New(directory Directory, classifier TopicClassifier, opts Options, logger *zap.Logger) *Engine {
	e := &Engine{
		directory:    directory,
		classifier:   classifier,
		dataset:      opts.Dataset,
		fallback:     opts.Fallback,
		allowUnknown: opts.AllowUnknownUsers,
		logger:       logger,
	}
	e.gates = []gate{
		{name: "identity", check: e.identityGate},
		{name: "admin_override", check: e.adminGate},
		{name: "sensitivity", check: e.sensitivityGate},
		{name: "department_match", check: e.departmentGate},
	}
	return e
}

// Decide runs the gates in order and returns the terminal decision plus
// the resolved subject record, which may be nil when the requester is
// unknown to both the directory and the reference dataset.
func (e *Engine) Decide(ctx context.Context, userID, query string) (domain.Decision, *domain.UserRecord) {
	req := &request{userID: userID, query: query}
	for _, g := range e.gates {
		if dec := g.check(ctx, req); dec != nil {
			metrics.DecisionsTotal.WithLabelValues(g.name, string(dec.Status)).Inc()
			e.logger.Info("access decision",
				zap.String("user_id", userID),
				zap.String("gate", g.name),
				zap.String("status", string(dec.Status)),
				zap.String("reason", dec.Reason))
			return *dec, req.subject
		}
	}
	// The department gate always terminates; reaching here is a bug.
	return domain.Errored("authorization gates exhausted without a decision"), req.subject
}

// identityGate resolves the subject. Unknown users either go to the
// fallback classifier, get default access when explicitly allowed, or
// are refused.
func (e *Engine) identityGate(ctx context.Context, req *request) *domain.Decision {
	user, err := e.directory.GetUser(ctx, req.userID)
	if err == nil {
		req.subject = user
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		e.logger.Warn("directory lookup failed, treating user as unknown",
			zap.String("user_id", req.userID), zap.Error(err))
	}

	if e.dataset != nil && e.fallback != nil {
		rec, derr := e.dataset.Lookup(req.userID)
		if derr == nil {
			dec := e.fallback.Predict(rec)
			if dec.IsApproved() {
				req.subject = subjectFromRecord(req.userID, rec)
			}
			return &dec
		}
		if !errors.Is(derr, domain.ErrReferenceRecordNotFound) {
			e.logger.Warn("reference dataset lookup failed",
				zap.String("user_id", req.userID), zap.Error(derr))
		}
	}

	if e.allowUnknown {
		dec := domain.Approved("default access granted (development mode)")
		return &dec
	}
	dec := domain.Denied(fmt.Sprintf("user %s is not recognized", req.userID))
	return &dec
}

func (e *Engine) adminGate(_ context.Context, req *request) *domain.Decision {
	if req.subject.IsAdmin() {
		dec := domain.Approved("admin override")
		return &dec
	}
	return nil
}

// sensitivityGate refuses finance-flagged queries from non-Finance users
// before topic classification runs, so rephrasing a query to dodge
// department nouns cannot bypass the restriction.
func (e *Engine) sensitivityGate(_ context.Context, req *request) *domain.Decision {
	if !e.classifier.IsSensitive(req.query, domain.DeptUnknown) {
		return nil
	}
	if req.subject.InDepartment(domain.DeptFinance) {
		return nil
	}
	dec := domain.Denied(fmt.Sprintf(
		"%s department users cannot access Finance-restricted content",
		req.subject.Department))
	return &dec
}

func (e *Engine) departmentGate(ctx context.Context, req *request) *domain.Decision {
	label := e.classifier.Classify(ctx, req.query)

	switch label {
	case domain.DeptGeneral:
		dec := domain.Approved("unscoped query")
		return &dec
	case domain.DeptUnknown:
		e.logger.Warn("query topic classification failed, treating as non-restrictive",
			zap.String("user_id", req.userID))
		dec := domain.Approved("topic could not be determined")
		return &dec
	}

	if req.subject.InDepartment(label) {
		dec := domain.Approved(fmt.Sprintf("department match: %s", label))
		return &dec
	}
	dec := domain.Denied(fmt.Sprintf(
		"%s department users cannot access %s department content",
		req.subject.Department, label))
	return &dec
}

// subjectFromRecord synthesizes a user record from a reference dataset
// row so that document filtering can still apply after a fallback
// approval.
func subjectFromRecord(userID string, rec fallback.Record) *domain.UserRecord {
	violations, _ := strconv.Atoi(rec["past_violations"])
	return &domain.UserRecord{
		UserID:               userID,
		Role:                 domain.ParseRole(rec["role"]),
		Department:           rec["department"],
		EmployeeStatus:       rec["employee_status"],
		TimeInPosition:       rec["time_in_position"],
		EmployeeJoinDate:     rec["employee_join_date"],
		LastSecurityTraining: rec["last_security_training"],
		Location:             rec["location"],
		Region:               rec["region"],
		PastViolations:       violations,
	}
}
