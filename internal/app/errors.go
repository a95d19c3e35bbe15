package app

import "errors"

// Sentinel errors returned by ingest and catalog operations. httpx maps
// each to a status code.
var (
	ErrNotFound     = errors.New("file not found")
	ErrSizeExceeded = errors.New("file size exceeds configured maximum")
	ErrMimeRejected = errors.New("file type not permitted")
	ErrTTLInvalid   = errors.New("requested ttl outside allowed range")
	ErrNameInvalid  = errors.New("original name invalid")
	ErrMetaInvalid  = errors.New("metadata shape invalid")
)
