package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docguard/internal/domain"
)

const (
	msgProcessed   = "Query processed successfully"
	msgNoMatches   = "Unable to find matching results in knowledge base."
	msgGenerateErr = "Sorry, I encountered an error while generating a response. Please try again later."

	contextSeparator = "\n\n---\n\n"
)

// Answer is the end-to-end result of one query request.
type Answer struct {
	Status   domain.DecisionStatus `json:"status"`
	Message  string                `json:"message"`
	Response string                `json:"response,omitempty"`
	Sources  []domain.Source       `json:"sources,omitempty"`
}

// Config bounds the retrieval and audit behavior of the pipeline.
type Config struct {
	TopK           int
	RelevanceFloor float64
	ExcerptLimit   int
}

// Service composes the access engine, retrieval, document filtering, and
// generation into the end-to-end request handler. It is stateless across
// requests.
type Service struct {
	engine    Decider
	filter    DocumentFilter
	retriever Retriever
	generator Generator
	audit     AuditRecorder
	cfg       Config
	logger    *zap.Logger
}

// New wires the pipeline. All collaborators are required.
func New(engine Decider, filter DocumentFilter, retriever Retriever, generator Generator, audit AuditRecorder, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		engine:    engine,
		filter:    filter,
		retriever: retriever,
		generator: generator,
		audit:     audit,
		cfg:       cfg,
		logger:    logger,
	}
}

// Decide runs only the authorization gates, without retrieval or
// generation.
func (s *Service) Decide(ctx context.Context, userID, queryText string) Answer {
	dec, _ := s.engine.Decide(ctx, userID, queryText)
	s.record(ctx, userID, queryText, dec.Status, dec.Reason)
	return Answer{Status: dec.Status, Message: dec.Reason}
}

// Answer handles one query end to end: decide, retrieve, filter,
// generate, collect sources, audit.
func (s *Service) Answer(ctx context.Context, userID, queryText string) Answer {
	dec, subject := s.engine.Decide(ctx, userID, queryText)
	if !dec.IsApproved() {
		s.record(ctx, userID, queryText, dec.Status, dec.Reason)
		return Answer{Status: dec.Status, Message: dec.Reason}
	}

	candidates, err := s.retriever.Search(ctx, queryText, s.cfg.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.String("user_id", userID), zap.Error(err))
		s.record(ctx, userID, queryText, domain.StatusError, msgNoMatches)
		return Answer{Status: domain.StatusError, Message: msgNoMatches}
	}

	relevant := candidates[:0:0]
	for _, c := range candidates {
		if c.Score >= s.cfg.RelevanceFloor {
			relevant = append(relevant, c)
		}
	}
	if len(relevant) == 0 {
		s.record(ctx, userID, queryText, domain.StatusError, msgNoMatches)
		return Answer{Status: domain.StatusError, Message: msgNoMatches}
	}

	allowed := s.filter.Apply(subject, relevant)
	if len(allowed) == 0 {
		msg := scopeDenialMessage(subject)
		s.record(ctx, userID, queryText, domain.StatusDenied, msg)
		return Answer{Status: domain.StatusDenied, Message: msg}
	}

	response := s.generate(ctx, allowed, queryText)
	s.record(ctx, userID, queryText, domain.StatusApproved, response)

	return Answer{
		Status:   domain.StatusApproved,
		Message:  msgProcessed,
		Response: response,
		Sources:  domain.CollectSources(allowed),
	}
}

func (s *Service) generate(ctx context.Context, docs []domain.CandidateDocument, question string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}

	response, err := s.generator.Generate(ctx, strings.Join(parts, contextSeparator), question)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		return msgGenerateErr
	}
	return response
}

// record appends an audit entry. Failures are logged and swallowed; the
// answer already decided is never altered by them.
func (s *Service) record(ctx context.Context, userID, queryText string, status domain.DecisionStatus, response string) {
	entry := domain.AuditEntry{
		UserID:   userID,
		Query:    queryText,
		Status:   status,
		Response: excerpt(response, s.cfg.ExcerptLimit),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func scopeDenialMessage(subject *domain.UserRecord) string {
	dept := "Unknown"
	if subject != nil && subject.Department != "" {
		dept = subject.Department
	}
	return fmt.Sprintf(
		"Access Denied: The requested information is outside your access scope as a %s department member. Please contact the appropriate department for assistance.",
		dept)
}

// excerpt truncates to limit runes. A non-positive limit disables
// truncation.
func excerpt(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
