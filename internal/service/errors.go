package service

import "errors"

// Sentinel errors the API layer maps to HTTP statuses.
var (
	// ErrNotFound marks lookups for jobs, documents, review items, or PRDs
	// that do not exist (or belong to a different job).
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks synchronously rejected requests: empty document
	// sets, unknown decisions, illegal state for the operation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyResolved marks a repeated decision on a review item.
	// Decisions are write-once.
	ErrAlreadyResolved = errors.New("review item already resolved")

	// ErrReviewIncomplete marks a resume attempt while review items are
	// still pending.
	ErrReviewIncomplete = errors.New("review incomplete")
)
