package shortener

import "errors"

// Errors returned by Service. Callers match them with errors.Is; the message
// of a returned error may carry extra detail after the sentinel text.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrURLAlreadyExists     = errors.New("url already exists")
	ErrCodeExceedsMaxLength = errors.New("short code exceeds maximum length")
	ErrCodeAlreadyExists    = errors.New("short code already exists")
	ErrURLNotFound          = errors.New("url not found")
	ErrURLExpired           = errors.New("url expired")

	// ErrStore wraps any unexpected failure of the underlying Repository.
	ErrStore = errors.New("store error")
)

// Errors returned by Repository implementations.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrHashTaken      = errors.New("url hash already taken")
	ErrCodeTaken      = errors.New("short code already taken")
)
