package ratchet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
	"merklesig/internal/protocol/lamport"
	"merklesig/internal/wire"
)

var (
	// ErrOutOfOrder is returned for an envelope whose sequence number is not
	// the one expected next.
	ErrOutOfOrder = errors.New("envelope out of order")
	// ErrBadSignature is returned when an envelope does not verify against
	// the expected key.
	ErrBadSignature = errors.New("envelope signature does not verify")
	// ErrNotIntroduced is returned by Seal before the chain's first key has
	// been announced with Introduce.
	ErrNotIntroduced = errors.New("chain has not been introduced")
)

// Digest is what a chain key signs for one envelope: the sequence number,
// the length-prefixed message and the encoded next public key.
func Digest(h crypto.Hasher, seq uint64, msg, next []byte) crypto.Digest {
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[:8], seq)
	binary.BigEndian.PutUint64(hdr[8:], uint64(len(msg)))
	return h.Sum(crypto.DomainRatchet, hdr[:], msg, next)
}

// Sender produces the outbound side of a chain.
type Sender struct {
	hasher  crypto.Hasher
	rand    io.Reader
	seq     uint64
	current *lamport.PrivateKey
}

// NewSender starts a chain with a fresh one-time key drawn from rand
// (crypto.Reader when nil).
func NewSender(h crypto.Hasher, rand io.Reader) (*Sender, error) {
	sk, err := lamport.GenerateKey(h, rand)
	if err != nil {
		return nil, err
	}
	return &Sender{hasher: h, rand: rand, current: sk}, nil
}

// RestoreSender rebuilds a Sender from persisted state.
func RestoreSender(st domain.SenderState, rand io.Reader) (*Sender, error) {
	sk, err := wire.UnmarshalOneTimePrivateKey(st.Key)
	if err != nil {
		return nil, fmt.Errorf("sender key: %w", err)
	}
	h, err := crypto.NewHasher(sk.Algorithm())
	if err != nil {
		return nil, err
	}
	return &Sender{hasher: h, rand: rand, seq: st.Seq, current: sk}, nil
}

// State returns the persistable form of the sender. The key bytes are
// secret.
func (s *Sender) State() domain.SenderState {
	return domain.SenderState{Seq: s.seq, Key: wire.MarshalOneTimePrivateKey(s.current)}
}

// Seq returns the sequence number of the next envelope.
func (s *Sender) Seq() uint64 { return s.seq }

// Introduce builds envelope 0, which announces the current key. The caller
// signs the returned digest with a long-lived key and stores the result in
// the envelope's Signature.
func (s *Sender) Introduce(msg []byte) (domain.Envelope, crypto.Digest, error) {
	if s.seq != 0 {
		return domain.Envelope{}, crypto.Digest{}, fmt.Errorf("%w: introduce at seq %d", ErrOutOfOrder, s.seq)
	}
	next := wire.MarshalOneTimePublicKey(s.current.Public())
	d := Digest(s.hasher, 0, msg, next)
	s.seq = 1
	return domain.Envelope{Seq: 0, Message: msg, NextPublicKey: next}, d, nil
}

// Seal signs msg with the current key, announces a freshly generated key and
// rotates to it.
func (s *Sender) Seal(msg []byte) (domain.Envelope, error) {
	if s.seq == 0 {
		return domain.Envelope{}, ErrNotIntroduced
	}
	nextKey, err := lamport.GenerateKey(s.hasher, s.rand)
	if err != nil {
		return domain.Envelope{}, err
	}
	next := wire.MarshalOneTimePublicKey(nextKey.Public())
	d := Digest(s.hasher, s.seq, msg, next)
	sig, err := s.current.Sign(d[:])
	if err != nil {
		nextKey.Burn()
		return domain.Envelope{}, err
	}
	env := domain.Envelope{
		Seq:           s.seq,
		Message:       msg,
		NextPublicKey: next,
		Signature:     wire.MarshalOneTimeSignature(sig),
	}
	s.current = nextKey
	s.seq++
	return env, nil
}

// Receiver checks the inbound side of a chain.
type Receiver struct {
	seq      uint64
	expected *lamport.PublicKey
}

// Accept opens envelope 0 of a chain. verify must check the envelope's
// Signature over the digest against the sender's long-lived key.
func Accept(env domain.Envelope, verify func(crypto.Digest) bool) (*Receiver, error) {
	if env.Seq != 0 {
		return nil, fmt.Errorf("%w: chain starts at seq %d", ErrOutOfOrder, env.Seq)
	}
	next, err := wire.UnmarshalOneTimePublicKey(env.NextPublicKey)
	if err != nil {
		return nil, fmt.Errorf("next key: %w", err)
	}
	h, err := crypto.NewHasher(next.Algorithm)
	if err != nil {
		return nil, err
	}
	if !verify(Digest(h, 0, env.Message, env.NextPublicKey)) {
		return nil, ErrBadSignature
	}
	return &Receiver{seq: 1, expected: next}, nil
}

// RestoreReceiver rebuilds a Receiver from persisted state.
func RestoreReceiver(st domain.ReceiverState) (*Receiver, error) {
	pk, err := wire.UnmarshalOneTimePublicKey(st.Key)
	if err != nil {
		return nil, fmt.Errorf("receiver key: %w", err)
	}
	return &Receiver{seq: st.Seq, expected: pk}, nil
}

// State returns the persistable form of the receiver.
func (r *Receiver) State() domain.ReceiverState {
	return domain.ReceiverState{Seq: r.seq, Key: wire.MarshalOneTimePublicKey(r.expected)}
}

// Seq returns the sequence number expected next.
func (r *Receiver) Seq() uint64 { return r.seq }

// Open verifies env against the expected key and rotates to the key it
// announces. On any error the receiver is left unchanged.
func (r *Receiver) Open(env domain.Envelope) ([]byte, error) {
	if env.Seq != r.seq {
		return nil, fmt.Errorf("%w: got seq %d, want %d", ErrOutOfOrder, env.Seq, r.seq)
	}
	next, err := wire.UnmarshalOneTimePublicKey(env.NextPublicKey)
	if err != nil {
		return nil, fmt.Errorf("next key: %w", err)
	}
	sig, err := wire.UnmarshalOneTimeSignature(env.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	h, err := crypto.NewHasher(r.expected.Algorithm)
	if err != nil {
		return nil, err
	}
	d := Digest(h, env.Seq, env.Message, env.NextPublicKey)
	if !r.expected.Verify(d[:], sig) {
		return nil, ErrBadSignature
	}
	r.expected = next
	r.seq++
	return env.Message, nil
}
