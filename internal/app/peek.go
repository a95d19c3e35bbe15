package app

import (
	"bytes"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffHeaderSize is the number of leading bytes peeled off for MIME
// detection: at least 4 KiB, per the peek-then-resume contract.
const sniffHeaderSize = 4096

// sniffStream peeks up to sniffHeaderSize bytes from r to detect its MIME
// type, then returns a single logical reader that replays the peeked bytes
// followed by the remainder of r. The caller reads the returned reader
// exactly once; r itself must not be read again.
//
// Detection is a three-level fallback: content-based sniffing first; if that
// only yields mimetype's own generic fallback (application/octet-stream) and
// the caller supplied a declared type, the declared type is used instead;
// application/octet-stream survives as the last resort when neither the
// sniff nor the caller produced anything more specific.
func sniffStream(r io.Reader, declared string) (mimeType string, stream io.Reader, err error) {
	buf := make([]byte, sniffHeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	peeked := buf[:n]
	mimeType = mimetype.Detect(peeked).String()
	if mimeType == "application/octet-stream" && declared != "" {
		mimeType = declared
	}
	stream = io.MultiReader(bytes.NewReader(peeked), r)
	return mimeType, stream, nil
}
