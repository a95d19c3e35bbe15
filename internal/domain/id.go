// Package domain: id.go generates and validates file identifiers.
package domain

import (
	"github.com/google/uuid"
)

// FileID is the canonical identifier for a stored file. It is a random
// UUID v4 rendered as its hyphenated lowercase string form, and also the
// BlobStore key used to address the underlying bytes.
type FileID string

// MaxIDLength is the largest allowed length for a client-supplied id.
const MaxIDLength = 255

// NewID generates a fresh random UUID v4 FileID. Clients never supply ids;
// the core always generates them.
func NewID() FileID {
	return FileID(uuid.NewString())
}

// ParseID validates s as a FileID. It enforces:
//   - length in [1, MaxIDLength]
//   - charset limited to [A-Za-z0-9_-]
//
// It does not require s to be a well-formed UUID: ids are opaque strings to
// every caller except the component that minted them.
func ParseID(s string) (FileID, error) {
	if !isValidID(s) {
		return "", ErrInvalidID
	}
	return FileID(s), nil
}

// String returns the string form of the FileID.
func (id FileID) String() string { return string(id) }

// Valid reports whether the id satisfies the same rules as ParseID.
func (id FileID) Valid() bool { return isValidID(string(id)) }

// isValidID performs validation without allocating an error.
func isValidID(s string) bool {
	if len(s) == 0 || len(s) > MaxIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
