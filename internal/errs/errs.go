package errs

import "errors"

// Sentinel errors for the engine. Handlers map these onto HTTP status codes,
// services wrap them with %w so callers can errors.Is their way back here.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected the request")
	ErrPersistence         = errors.New("persistence failure")
)
