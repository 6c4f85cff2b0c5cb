package services

import "errors"

var (
	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// email and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCoverStorageDisabled is returned when a cover image is uploaded
	// but no object storage is configured.
	ErrCoverStorageDisabled = errors.New("cover storage is not configured")
)
