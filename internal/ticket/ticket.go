// Package ticket issues ticket codes and renders their scannable form.
//
// A code is a random UUIDv4 string: non-sequential and unguessable, so
// possession of the code is the credential.  The generator performs no
// uniqueness bookkeeping of its own; the unique index on
// registrations.ticket_code is the authority, and the registration
// service retries exactly once on the (astronomically unlikely) collision.
package ticket

import (
    "errors"

    "github.com/google/uuid"
    qrcode "github.com/skip2/go-qrcode"
)

// DefaultQRSize is the edge length in pixels used when a caller passes a
// non-positive size to QRCodePNG.
const DefaultQRSize = 256

// ErrEmptyCode is returned when rendering an empty payload.
var ErrEmptyCode = errors.New("ticket code is empty")

// NewCode returns a fresh ticket code.
func NewCode() string {
    return uuid.NewString()
}

// Valid reports whether s has the shape of a ticket code.  Scanners pass
// through whatever the camera decoded; rejecting junk here keeps garbage
// out of the lookup path.
func Valid(s string) bool {
    _, err := uuid.Parse(s)
    return err == nil
}

// QRCodePNG renders the code as a PNG QR image.  The payload is exactly
// the code string with no extra structure, so the check-in side decodes a
// scan into a plain string-equality lookup.
func QRCodePNG(code string, size int) ([]byte, error) {
    if code == "" {
        return nil, ErrEmptyCode
    }
    if size <= 0 {
        size = DefaultQRSize
    }
    return qrcode.Encode(code, qrcode.Medium, size)
}
