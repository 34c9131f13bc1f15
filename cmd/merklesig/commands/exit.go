package commands

import (
	"errors"

	"merklesig/internal/domain"
	"merklesig/internal/protocol/mss"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1 // generic error or signature did not verify
	ExitMalformed   = 2 // malformed input or index out of range
	ExitExhausted   = 3
	ExitAlreadyUsed = 4
	ExitRandomness  = 5
)

// ExitCode maps an error returned by Execute to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrRandomnessFailure):
		return ExitRandomness
	case errors.Is(err, domain.ErrAlreadyUsedKey):
		return ExitAlreadyUsed
	case errors.Is(err, domain.ErrKeyExhausted):
		return ExitExhausted
	case errors.Is(err, domain.ErrMalformedInput),
		errors.Is(err, domain.ErrUnsupportedVersion),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, mss.ErrLeafCount):
		return ExitMalformed
	default:
		return ExitFailure
	}
}
