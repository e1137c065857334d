package sentinel

import "errors"

// Sentinel errors for storage facts. Memory and PostgreSQL stores return these
// (optionally wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: profile, case, or payment session does not exist
//   - ErrConflict: a unique key (email, session id) is already taken
//   - ErrInvalidState: entity is in the wrong state for the mutation (e.g. a
//     payment session that already left pending)
//   - ErrUnavailable: the backing store cannot be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
