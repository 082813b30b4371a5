package services

import "errors"

// Service errors
var (
	// Artifact errors
	ErrArtifactNotFound = errors.New("download not found")
	ErrArtifactExpired  = errors.New("download expired")

	// Upload errors
	ErrInvalidOptions = errors.New("invalid sift options")

	// General errors
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
