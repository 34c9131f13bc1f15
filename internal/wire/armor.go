package wire

import (
	"fmt"

	"merklesig/internal/crypto"
)

// Armor returns the base64 text form of an encoding.
func Armor(b []byte) string { return crypto.B64(b) }

// Dearmor decodes the text form, ignoring surrounding whitespace.
func Dearmor(s string) ([]byte, error) {
	b, err := crypto.FromB64(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return b, nil
}
