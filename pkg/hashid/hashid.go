// Package hashid generates the opaque per-process hash tokens used as
// rendezvous filenames (spec glossary: "Hash" — an opaque per-process
// identifier whose string form doubles as a rendezvous filename).
package hashid

import "github.com/google/uuid"

// New returns a fresh random hash token: a 32-character lowercase hex string
// (a UUID v4 with its separating hyphens stripped) encoding the UUID's 16
// bytes, which meets the 16-byte minimum the design requires, and safe to use as a filename on every
// POSIX filesystem this supervisor targets.
func New() string {
	id := uuid.New()
	buf := make([]byte, 0, 32)
	const hexDigits = "0123456789abcdef"
	for _, b := range id {
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(buf)
}
