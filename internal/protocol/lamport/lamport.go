package lamport

import (
	"crypto/subtle"
	"errors"
	"io"
	"sync/atomic"

	"merklesig/internal/crypto"
)

const (
	// Positions is the number of digest bits, and so of secret pairs.
	Positions = crypto.DigestBits

	// PublicKeySize is the encoded size of a PublicKey.
	PublicKeySize = Positions * 2 * crypto.DigestSize
	// PrivateKeySize is the encoded size of a PrivateKey's secrets.
	PrivateKeySize = Positions * 2 * crypto.DigestSize
	// SignatureSize is the encoded size of a Signature.
	SignatureSize = Positions * crypto.DigestSize
)

var (
	// ErrAlreadyUsedKey is returned when a one-time private key is asked to
	// sign a second time. It signals a caller bug or an attack.
	ErrAlreadyUsedKey = errors.New("one-time key already used")

	errSize = errors.New("lamport: wrong encoded size")
)

// PublicKey is the hash of every secret of a PrivateKey.
type PublicKey struct {
	Algorithm crypto.Algorithm
	Hashes    [Positions][2]crypto.Digest
}

// PrivateKey is a single-use signing key.
type PrivateKey struct {
	hasher  crypto.Hasher
	secrets [Positions][2]crypto.Secret
	public  *PublicKey
	used    atomic.Bool
}

// Signature holds one revealed secret per digest bit.
type Signature struct {
	Algorithm crypto.Algorithm
	Preimages [Positions]crypto.Secret
}

// GenerateKey draws 2*Positions secrets from rand (crypto.Reader when nil)
// and derives the matching public key.
func GenerateKey(h crypto.Hasher, rand io.Reader) (*PrivateKey, error) {
	sk := &PrivateKey{hasher: h}
	for i := 0; i < Positions; i++ {
		for b := 0; b < 2; b++ {
			s, err := crypto.RandomSecret(rand)
			if err != nil {
				sk.wipe()
				return nil, err
			}
			sk.secrets[i][b] = s
		}
	}
	sk.public = sk.derivePublic()
	return sk, nil
}

func (sk *PrivateKey) derivePublic() *PublicKey {
	pk := &PublicKey{Algorithm: sk.hasher.Algorithm()}
	for i := 0; i < Positions; i++ {
		for b := 0; b < 2; b++ {
			pk.Hashes[i][b] = sk.hasher.Sum(crypto.DomainSecret, sk.secrets[i][b][:])
		}
	}
	return pk
}

// Public returns the public key. It stays available after Sign or Burn, but
// is nil for a key restored in the consumed state.
func (sk *PrivateKey) Public() *PublicKey { return sk.public }

// Algorithm returns the hash algorithm the key was generated with.
func (sk *PrivateKey) Algorithm() crypto.Algorithm { return sk.hasher.Algorithm() }

// Used reports whether the key has already produced a signature.
func (sk *PrivateKey) Used() bool { return sk.used.Load() }

// Burn marks the key consumed without signing and wipes its secrets.
// It reports whether the key was still fresh.
func (sk *PrivateKey) Burn() bool {
	if !sk.used.CompareAndSwap(false, true) {
		return false
	}
	sk.wipe()
	return true
}

// Sign reveals the secrets selected by H(DomainMessage || msg). The key is
// consumed before any secret is read.
func (sk *PrivateKey) Sign(msg []byte) (*Signature, error) {
	if !sk.used.CompareAndSwap(false, true) {
		return nil, ErrAlreadyUsedKey
	}
	digest := sk.hasher.Sum(crypto.DomainMessage, msg)
	sig := &Signature{Algorithm: sk.hasher.Algorithm()}
	for i := 0; i < Positions; i++ {
		bit := digest.Bit(i)
		copy(sig.Preimages[i][:], sk.secrets[i][0][:])
		subtle.ConstantTimeCopy(bit, sig.Preimages[i][:], sk.secrets[i][1][:])
	}
	sk.wipe()
	return sig, nil
}

func (sk *PrivateKey) wipe() {
	for i := range sk.secrets {
		crypto.Wipe(sk.secrets[i][0][:], sk.secrets[i][1][:])
	}
}

// Verify reports whether sig is a signature of msg under pk. Every position
// is checked; the result does not reveal which one failed.
func (pk *PublicKey) Verify(msg []byte, sig *Signature) bool {
	if pk == nil || sig == nil || pk.Algorithm != sig.Algorithm {
		return false
	}
	h, err := crypto.NewHasher(pk.Algorithm)
	if err != nil {
		return false
	}
	digest := h.Sum(crypto.DomainMessage, msg)
	ok := 1
	var want crypto.Digest
	for i := 0; i < Positions; i++ {
		bit := digest.Bit(i)
		want = pk.Hashes[i][0]
		subtle.ConstantTimeCopy(bit, want[:], pk.Hashes[i][1][:])
		got := h.Sum(crypto.DomainSecret, sig.Preimages[i][:])
		ok &= subtle.ConstantTimeCompare(got[:], want[:])
	}
	return ok == 1
}

// Verify is shorthand for pk.Verify(msg, sig).
func Verify(pk *PublicKey, msg []byte, sig *Signature) bool {
	return pk.Verify(msg, sig)
}
