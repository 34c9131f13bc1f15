package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrRandomnessFailure is returned when the secure random source cannot
// produce the requested bytes. It is fatal: callers must not retry with a
// different source.
var ErrRandomnessFailure = errors.New("secure random source unavailable")

// Secret is a uniformly random preimage of DigestSize bytes.
type Secret [DigestSize]byte

// Reader is the CSPRNG used when callers pass a nil reader.
var Reader io.Reader = rand.Reader

// RandomSecret draws one Secret from r, or from Reader when r is nil.
func RandomSecret(r io.Reader) (Secret, error) {
	var s Secret
	if err := FillRandom(r, s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}

// FillRandom fills b completely from r, or from Reader when r is nil.
func FillRandom(r io.Reader, b []byte) error {
	if r == nil {
		r = Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		Wipe(b)
		return fmt.Errorf("%w: %v", ErrRandomnessFailure, err)
	}
	return nil
}
