package wire

import (
	"merklesig/internal/crypto"
	"merklesig/internal/protocol/lamport"
)

const (
	flagFresh    = 0
	flagConsumed = 1
)

// MarshalOneTimePublicKey encodes a one-time public key.
func MarshalOneTimePublicKey(pk *lamport.PublicKey) []byte {
	out := newHeader(SchemeOneTime, KindPublicKey, pk.Algorithm, 0).appendTo(make([]byte, 0, HeaderSize+lamport.PublicKeySize))
	return append(out, pk.Bytes()...)
}

// UnmarshalOneTimePublicKey decodes a one-time public key.
func UnmarshalOneTimePublicKey(b []byte) (*lamport.PublicKey, error) {
	h, body, err := readHeader(b, SchemeOneTime, KindPublicKey)
	if err != nil {
		return nil, err
	}
	if err := bodySize(body, lamport.PublicKeySize); err != nil {
		return nil, err
	}
	return lamport.ParsePublicKey(h.Algorithm, body)
}

// MarshalOneTimeSignature encodes a one-time signature.
func MarshalOneTimeSignature(sig *lamport.Signature) []byte {
	out := newHeader(SchemeOneTime, KindSignature, sig.Algorithm, 0).appendTo(make([]byte, 0, HeaderSize+lamport.SignatureSize))
	return append(out, sig.Bytes()...)
}

// UnmarshalOneTimeSignature decodes a one-time signature.
func UnmarshalOneTimeSignature(b []byte) (*lamport.Signature, error) {
	h, body, err := readHeader(b, SchemeOneTime, KindSignature)
	if err != nil {
		return nil, err
	}
	if err := bodySize(body, lamport.SignatureSize); err != nil {
		return nil, err
	}
	return lamport.ParseSignature(h.Algorithm, body)
}

// MarshalOneTimePrivateKey encodes the secrets and the consumed flag of a
// one-time key. The result holds secret material; callers wipe it when done.
func MarshalOneTimePrivateKey(sk *lamport.PrivateKey) []byte {
	out := newHeader(SchemeOneTime, KindPrivateKey, sk.Algorithm(), 0).appendTo(make([]byte, 0, HeaderSize+lamport.PrivateKeySize+1))
	out = sk.AppendSecrets(out)
	return append(out, consumedFlag(sk))
}

// UnmarshalOneTimePrivateKey decodes a one-time private key.
func UnmarshalOneTimePrivateKey(b []byte) (*lamport.PrivateKey, error) {
	h, body, err := readHeader(b, SchemeOneTime, KindPrivateKey)
	if err != nil {
		return nil, err
	}
	if err := bodySize(body, lamport.PrivateKeySize+1); err != nil {
		return nil, err
	}
	used, err := parseFlag(body[lamport.PrivateKeySize])
	if err != nil {
		return nil, err
	}
	hasher, err := crypto.NewHasher(h.Algorithm)
	if err != nil {
		return nil, err
	}
	return lamport.ParsePrivateKey(hasher, body[:lamport.PrivateKeySize], used)
}

func consumedFlag(sk *lamport.PrivateKey) byte {
	if sk.Used() {
		return flagConsumed
	}
	return flagFresh
}

func parseFlag(b byte) (bool, error) {
	switch b {
	case flagFresh:
		return false, nil
	case flagConsumed:
		return true, nil
	default:
		return false, ErrMalformedInput
	}
}
