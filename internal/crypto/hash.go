package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"
)

const (
	// DigestSize is the output length L of every supported hash, in bytes.
	DigestSize = 32
	// DigestBits is L in bits; one-time keys carry one secret pair per bit.
	DigestBits = DigestSize * 8
)

// Digest is a fixed-width hash output.
type Digest [DigestSize]byte

// Bytes returns the digest as a []byte.
func (d Digest) Bytes() []byte { return d[:] }

// String returns the hex form of the digest.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Equal reports whether d and o are identical, in constant time.
func (d Digest) Equal(o Digest) bool {
	return subtle.ConstantTimeCompare(d[:], o[:]) == 1
}

// Bit returns bit i of the digest, least significant bit of each byte first.
func (d Digest) Bit(i int) int {
	return int(d[i/8]>>(uint(i)%8)) & 1
}

// Domain is the one-byte prefix that separates hashing contexts.
type Domain byte

const (
	DomainMessage     Domain = 0x00 // message digest signed by a one-time key
	DomainSecret      Domain = 0x01 // one-time secret -> public half
	DomainLeaf        Domain = 0x02 // serialized one-time public key -> tree leaf
	DomainNode        Domain = 0x03 // left || right -> tree node
	DomainPadding     Domain = 0x04 // sentinel filling empty tree slots
	DomainRatchet     Domain = 0x05 // ratchet envelope transcript
	DomainFingerprint Domain = 0x06 // encoded public key -> display fingerprint
)

// Algorithm identifies the hash function behind a Hasher. The numeric value
// is part of the encoded key and signature header.
type Algorithm uint8

const (
	BLAKE3   Algorithm = 1
	SHA3_256 Algorithm = 2
)

// String returns the canonical name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case BLAKE3:
		return "blake3"
	case SHA3_256:
		return "sha3-256"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a names a supported algorithm.
func (a Algorithm) Valid() bool { return a == BLAKE3 || a == SHA3_256 }

// ParseAlgorithm maps a name as printed by Algorithm.String back to its value.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blake3":
		return BLAKE3, nil
	case "sha3-256", "sha3":
		return SHA3_256, nil
	default:
		return 0, fmt.Errorf("unknown hash algorithm %q", name)
	}
}

// Hasher computes domain-tagged digests with a fixed algorithm.
// The zero value is not usable; obtain one from NewHasher or Default.
type Hasher struct {
	alg Algorithm
}

// NewHasher returns a Hasher for alg.
func NewHasher(alg Algorithm) (Hasher, error) {
	if !alg.Valid() {
		return Hasher{}, fmt.Errorf("unsupported hash algorithm %s", alg)
	}
	return Hasher{alg: alg}, nil
}

// Default returns the BLAKE3 hasher.
func Default() Hasher { return Hasher{alg: BLAKE3} }

// Algorithm returns the algorithm this hasher uses.
func (h Hasher) Algorithm() Algorithm { return h.alg }

// Sum hashes domain || parts[0] || parts[1] || ... .
func (h Hasher) Sum(domain Domain, parts ...[]byte) Digest {
	w := h.newHash()
	_, _ = w.Write([]byte{byte(domain)})
	for _, p := range parts {
		_, _ = w.Write(p)
	}
	var out Digest
	w.Sum(out[:0])
	return out
}

func (h Hasher) newHash() hash.Hash {
	switch h.alg {
	case BLAKE3:
		return blake3.New()
	case SHA3_256:
		return sha3.New256()
	default:
		panic("crypto: Hasher used without a valid algorithm")
	}
}
