package core

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")

	ErrUnknownProvider = errors.New("unknown provider")
	ErrInvalidState    = errors.New("invalid authorization state")
	// The provider API responded successfully but the payload is missing a required key.
	ErrUnexpectedAPIResponse = errors.New("provider API returned an unexpected response")
	// The provider API responded with a body that is not valid JSON.
	ErrMalformedResponse = errors.New("provider API returned a malformed response")
)
