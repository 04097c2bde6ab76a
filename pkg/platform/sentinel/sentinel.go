package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record or confirmation token does not exist in the store
// - ErrConflict: a record with the same natural key was already committed
// - ErrAlreadyUsed: resource (confirmation token, confirmed email) already consumed
// - ErrUnavailable: storage or downstream service temporarily unavailable
//
// For validation errors (bad input, malformed fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
