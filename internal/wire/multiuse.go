package wire

import (
	"encoding/binary"
	"fmt"

	"merklesig/internal/crypto"
	"merklesig/internal/protocol/lamport"
	"merklesig/internal/protocol/merkle"
	"merklesig/internal/protocol/mss"
)

const (
	leafRecordSize = 1 + crypto.DigestSize + lamport.PrivateKeySize
	pathNodeSize   = 1 + crypto.DigestSize
)

func leafCount(h Header) (int, error) {
	if h.LeafCount > mss.MaxLeaves {
		return 0, fmt.Errorf("%w: leaf count %d", ErrMalformedInput, h.LeafCount)
	}
	return int(h.LeafCount), nil
}

// MarshalPublicKey encodes a multi-use public key.
func MarshalPublicKey(pk *mss.PublicKey) []byte {
	out := newHeader(SchemeMultiUse, KindPublicKey, pk.Algorithm, pk.LeafCount).appendTo(make([]byte, 0, HeaderSize+crypto.DigestSize))
	return append(out, pk.Root[:]...)
}

// UnmarshalPublicKey decodes a multi-use public key.
func UnmarshalPublicKey(b []byte) (*mss.PublicKey, error) {
	h, body, err := readHeader(b, SchemeMultiUse, KindPublicKey)
	if err != nil {
		return nil, err
	}
	if _, err := leafCount(h); err != nil {
		return nil, err
	}
	if err := bodySize(body, crypto.DigestSize); err != nil {
		return nil, err
	}
	pk := &mss.PublicKey{Algorithm: h.Algorithm, LeafCount: uint64(h.LeafCount)}
	copy(pk.Root[:], body)
	return pk, nil
}

// MarshalSignature encodes a multi-use signature.
func MarshalSignature(sig *mss.Signature) []byte {
	size := HeaderSize + 8 + lamport.PublicKeySize + lamport.SignatureSize + len(sig.Path)*pathNodeSize
	out := newHeader(SchemeMultiUse, KindSignature, sig.Algorithm, sig.LeafCount).appendTo(make([]byte, 0, size))
	out = binary.BigEndian.AppendUint64(out, sig.Index)
	out = append(out, sig.LeafPublicKey.Bytes()...)
	out = append(out, sig.OneTime.Bytes()...)
	for _, n := range sig.Path {
		out = append(out, byte(n.Side))
		out = append(out, n.Sibling[:]...)
	}
	return out
}

// UnmarshalSignature decodes a multi-use signature. The path must have
// exactly the height implied by the header's leaf count.
func UnmarshalSignature(b []byte) (*mss.Signature, error) {
	h, body, err := readHeader(b, SchemeMultiUse, KindSignature)
	if err != nil {
		return nil, err
	}
	n, err := leafCount(h)
	if err != nil {
		return nil, err
	}
	height := merkle.Height(n)
	if err := bodySize(body, 8+lamport.PublicKeySize+lamport.SignatureSize+height*pathNodeSize); err != nil {
		return nil, err
	}
	sig := &mss.Signature{
		Algorithm: h.Algorithm,
		LeafCount: uint64(n),
		Index:     binary.BigEndian.Uint64(body),
	}
	if sig.Index >= sig.LeafCount {
		return nil, fmt.Errorf("%w: index %d of %d", ErrMalformedInput, sig.Index, n)
	}
	body = body[8:]
	if sig.LeafPublicKey, err = lamport.ParsePublicKey(h.Algorithm, body[:lamport.PublicKeySize]); err != nil {
		return nil, err
	}
	body = body[lamport.PublicKeySize:]
	if sig.OneTime, err = lamport.ParseSignature(h.Algorithm, body[:lamport.SignatureSize]); err != nil {
		return nil, err
	}
	body = body[lamport.SignatureSize:]
	sig.Path = make(merkle.Path, height)
	for i := range sig.Path {
		rec := body[i*pathNodeSize:]
		side := merkle.Side(rec[0])
		if side != merkle.SiblingRight && side != merkle.SiblingLeft {
			return nil, fmt.Errorf("%w: path side %d", ErrMalformedInput, rec[0])
		}
		sig.Path[i].Side = side
		copy(sig.Path[i].Sibling[:], rec[1:pathNodeSize])
	}
	return sig, nil
}

// MarshalPrivateKey encodes every leaf of a multi-use key as its consumed
// flag, its committed leaf hash and its secrets. The next index is not part
// of the encoding. The result holds secret material; callers wipe it when
// done.
func MarshalPrivateKey(sk *mss.PrivateKey) []byte {
	leaves := sk.Leaves()
	hashes := sk.LeafHashes()
	out := newHeader(SchemeMultiUse, KindPrivateKey, sk.Algorithm(), sk.LeafCount()).appendTo(make([]byte, 0, HeaderSize+len(leaves)*leafRecordSize))
	for i, l := range leaves {
		out = append(out, consumedFlag(l))
		out = append(out, hashes[i][:]...)
		out = l.AppendSecrets(out)
	}
	return out
}

// UnmarshalPrivateKey decodes a multi-use key and advances it to next.
func UnmarshalPrivateKey(b []byte, next uint64) (*mss.PrivateKey, error) {
	h, body, err := readHeader(b, SchemeMultiUse, KindPrivateKey)
	if err != nil {
		return nil, err
	}
	n, err := leafCount(h)
	if err != nil {
		return nil, err
	}
	if err := bodySize(body, n*leafRecordSize); err != nil {
		return nil, err
	}
	hasher, err := crypto.NewHasher(h.Algorithm)
	if err != nil {
		return nil, err
	}
	leaves := make([]*lamport.PrivateKey, n)
	hashes := make([]crypto.Digest, n)
	for i := range leaves {
		rec := body[i*leafRecordSize : (i+1)*leafRecordSize]
		used, err := parseFlag(rec[0])
		if err != nil {
			return nil, err
		}
		copy(hashes[i][:], rec[1:1+crypto.DigestSize])
		if leaves[i], err = lamport.ParsePrivateKey(hasher, rec[1+crypto.DigestSize:], used); err != nil {
			return nil, err
		}
	}
	sk, err := mss.Restore(hasher, leaves, hashes, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if err := sk.SetNextIndex(next); err != nil {
		return nil, err
	}
	return sk, nil
}
