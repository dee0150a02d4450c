package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRecordID occurs when an opaque record id fails to decode.
	ErrInvalidRecordID = errors.New("invalid record id")
)
