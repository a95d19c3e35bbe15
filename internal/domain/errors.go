// Package domain contains the core types and invariants shared by every
// higher layer: file identity, TTL bounds, and sanitization rules. It has no
// I/O and no dependency on any storage backend.
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidID     = errors.New("invalid file id")
	ErrTTLInvalid    = errors.New("ttl invalid")
	ErrInvalidName   = errors.New("original name invalid")
	ErrMetadataShape = errors.New("metadata shape invalid")
)
