package storage

import (
	"errors"

	dErrors "ateneo/pkg/domain-errors"
	"ateneo/pkg/platform/sentinel"
)

// Translate maps store sentinels to coded domain errors. Errors that already
// carry a code pass through; anything else is reported as the store being
// unavailable.
func Translate(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "conflicting update")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "profile store unavailable")
	}
}
