package models

import "errors"

var (
	// ErrNotFound signals that a referenced incident does not exist
	// (including one deleted concurrently with the operation).
	ErrNotFound = errors.New("incident not found")

	ErrInvalidStatus   = errors.New("invalid incident status")
	ErrInvalidSeverity = errors.New("invalid incident severity")

	// ErrMediaRejected covers media that is too large or of an unaccepted type.
	ErrMediaRejected = errors.New("media rejected")
)
