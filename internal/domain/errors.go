package domain

import "errors"

var (
	// ErrUserNotFound signals a user_id absent from the directory.
	ErrUserNotFound = errors.New("user not found")
	// ErrReferenceRecordNotFound signals a user_id absent from the reference dataset.
	ErrReferenceRecordNotFound = errors.New("reference record not found")
	// ErrIndexUnavailable signals a missing or unreachable vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrLLMProviderError signals a classification, embedding, or generation
	// provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrInvalidDocument signals a document that cannot be ingested.
	ErrInvalidDocument = errors.New("invalid document")
)
