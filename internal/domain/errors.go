package domain

import (
	"errors"

	"merklesig/internal/crypto"
	"merklesig/internal/protocol/lamport"
	"merklesig/internal/protocol/merkle"
	"merklesig/internal/protocol/mss"
	"merklesig/internal/wire"
)

// Errors raised by the signature schemes, re-exported so callers above the
// protocol layer need a single import.
var (
	ErrRandomnessFailure  = crypto.ErrRandomnessFailure
	ErrAlreadyUsedKey     = lamport.ErrAlreadyUsedKey
	ErrKeyExhausted       = mss.ErrKeyExhausted
	ErrIndexOutOfRange    = merkle.ErrIndexOutOfRange
	ErrIndexRegression    = mss.ErrIndexRegression
	ErrMalformedInput     = wire.ErrMalformedInput
	ErrUnsupportedVersion = wire.ErrUnsupportedVersion
)

var (
	// ErrVerificationFailed is returned where a boolean verification result
	// has to travel as an error.
	ErrVerificationFailed = errors.New("signature verification failed")
	// ErrNotFound is returned when a named key or peer does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadPassphrase is returned when sealed material cannot be opened.
	ErrBadPassphrase = errors.New("wrong passphrase or corrupted key file")
	// ErrIndexConflict is returned by ReserveNextIndex when another signer
	// moved the index first.
	ErrIndexConflict = errors.New("next index was reserved by another signer")
)
