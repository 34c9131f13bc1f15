package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"merklesig/internal/crypto"
)

// Version is the only format version this package writes.
const Version = 1

// HeaderSize is the length of the fixed prefix of every encoded object.
const HeaderSize = 12

var magic = [2]byte{0x4D, 0x53}

var (
	// ErrMalformedInput is returned for any encoding that does not parse.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedVersion is returned for a header newer than Version.
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// Scheme says whether an object belongs to a one-time or a multi-use key.
type Scheme uint8

const (
	SchemeOneTime  Scheme = 1
	SchemeMultiUse Scheme = 2
)

func (s Scheme) String() string {
	switch s {
	case SchemeOneTime:
		return "one-time"
	case SchemeMultiUse:
		return "multi-use"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// Kind is the object type carried by an encoding.
type Kind uint8

const (
	KindPublicKey  Kind = 1
	KindPrivateKey Kind = 2
	KindSignature  Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindPublicKey:
		return "public key"
	case KindPrivateKey:
		return "private key"
	case KindSignature:
		return "signature"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Header is the decoded fixed prefix.
type Header struct {
	Version    uint8
	Scheme     Scheme
	Kind       Kind
	Algorithm  crypto.Algorithm
	DigestSize uint16
	LeafCount  uint32
}

func newHeader(s Scheme, k Kind, alg crypto.Algorithm, n uint64) Header {
	return Header{
		Version:    Version,
		Scheme:     s,
		Kind:       k,
		Algorithm:  alg,
		DigestSize: crypto.DigestSize,
		LeafCount:  uint32(n),
	}
}

func (h Header) appendTo(dst []byte) []byte {
	dst = append(dst, magic[0], magic[1], h.Version, byte(h.Scheme), byte(h.Kind), byte(h.Algorithm))
	dst = binary.BigEndian.AppendUint16(dst, h.DigestSize)
	return binary.BigEndian.AppendUint32(dst, h.LeafCount)
}

// PeekHeader decodes and validates the header of b without looking at the
// body.
func PeekHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedInput, len(b))
	}
	if b[0] != magic[0] || b[1] != magic[1] {
		return Header{}, fmt.Errorf("%w: bad magic", ErrMalformedInput)
	}
	h := Header{
		Version:    b[2],
		Scheme:     Scheme(b[3]),
		Kind:       Kind(b[4]),
		Algorithm:  crypto.Algorithm(b[5]),
		DigestSize: binary.BigEndian.Uint16(b[6:8]),
		LeafCount:  binary.BigEndian.Uint32(b[8:12]),
	}
	switch {
	case h.Version > Version:
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	case h.Version != Version:
		return Header{}, fmt.Errorf("%w: version %d", ErrMalformedInput, h.Version)
	case h.Scheme != SchemeOneTime && h.Scheme != SchemeMultiUse:
		return Header{}, fmt.Errorf("%w: %s", ErrMalformedInput, h.Scheme)
	case h.Kind < KindPublicKey || h.Kind > KindSignature:
		return Header{}, fmt.Errorf("%w: %s", ErrMalformedInput, h.Kind)
	case !h.Algorithm.Valid():
		return Header{}, fmt.Errorf("%w: %s", ErrMalformedInput, h.Algorithm)
	case h.DigestSize != crypto.DigestSize:
		return Header{}, fmt.Errorf("%w: digest length %d", ErrMalformedInput, h.DigestSize)
	case h.Scheme == SchemeOneTime && h.LeafCount != 0:
		return Header{}, fmt.Errorf("%w: one-time object with leaf count %d", ErrMalformedInput, h.LeafCount)
	case h.Scheme == SchemeMultiUse && h.LeafCount == 0:
		return Header{}, fmt.Errorf("%w: multi-use object without leaves", ErrMalformedInput)
	}
	return h, nil
}

// readHeader checks the header against the expected scheme and kind and
// returns the body.
func readHeader(b []byte, s Scheme, k Kind) (Header, []byte, error) {
	h, err := PeekHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Scheme != s || h.Kind != k {
		return Header{}, nil, fmt.Errorf("%w: got %s %s, want %s %s", ErrMalformedInput, h.Scheme, h.Kind, s, k)
	}
	return h, b[HeaderSize:], nil
}

func bodySize(body []byte, want int) error {
	if len(body) != want {
		return fmt.Errorf("%w: body is %d bytes, want %d", ErrMalformedInput, len(body), want)
	}
	return nil
}
