package lamport

import (
	"merklesig/internal/crypto"
)

// Bytes serialises the public key body: for each position, the bit-0 hash
// followed by the bit-1 hash.
func (pk *PublicKey) Bytes() []byte {
	out := make([]byte, 0, PublicKeySize)
	for i := 0; i < Positions; i++ {
		out = append(out, pk.Hashes[i][0][:]...)
		out = append(out, pk.Hashes[i][1][:]...)
	}
	return out
}

// ParsePublicKey decodes a body produced by PublicKey.Bytes.
func ParsePublicKey(alg crypto.Algorithm, b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, errSize
	}
	pk := &PublicKey{Algorithm: alg}
	for i := 0; i < Positions; i++ {
		off := i * 2 * crypto.DigestSize
		copy(pk.Hashes[i][0][:], b[off:])
		copy(pk.Hashes[i][1][:], b[off+crypto.DigestSize:])
	}
	return pk, nil
}

// Bytes serialises the signature body.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, 0, SignatureSize)
	for i := 0; i < Positions; i++ {
		out = append(out, sig.Preimages[i][:]...)
	}
	return out
}

// ParseSignature decodes a body produced by Signature.Bytes.
func ParseSignature(alg crypto.Algorithm, b []byte) (*Signature, error) {
	if len(b) != SignatureSize {
		return nil, errSize
	}
	sig := &Signature{Algorithm: alg}
	for i := 0; i < Positions; i++ {
		copy(sig.Preimages[i][:], b[i*crypto.DigestSize:])
	}
	return sig, nil
}

// AppendSecrets appends the secret body to dst. A consumed key appends
// zeros, so stored copies never hold revealed material.
func (sk *PrivateKey) AppendSecrets(dst []byte) []byte {
	for i := 0; i < Positions; i++ {
		dst = append(dst, sk.secrets[i][0][:]...)
		dst = append(dst, sk.secrets[i][1][:]...)
	}
	return dst
}

// ParsePrivateKey rebuilds a key from a secret body. A key restored with
// used set is consumed from the start and has no public key: its secrets
// were wiped before it was stored.
func ParsePrivateKey(h crypto.Hasher, b []byte, used bool) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, errSize
	}
	sk := &PrivateKey{hasher: h}
	if used {
		sk.used.Store(true)
		return sk, nil
	}
	for i := 0; i < Positions; i++ {
		off := i * 2 * crypto.DigestSize
		copy(sk.secrets[i][0][:], b[off:])
		copy(sk.secrets[i][1][:], b[off+crypto.DigestSize:])
	}
	sk.public = sk.derivePublic()
	return sk, nil
}
