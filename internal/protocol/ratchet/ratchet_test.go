package ratchet_test

import (
	"errors"
	"testing"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
	"merklesig/internal/protocol/mss"
	"merklesig/internal/protocol/ratchet"
	"merklesig/internal/wire"
)

// introduce starts a chain whose first envelope is signed by a fresh
// multi-use identity key, and accepts it on the receiving side.
func introduce(t *testing.T, first string) (*ratchet.Sender, *ratchet.Receiver) {
	t.Helper()
	id, err := mss.GenerateKey(crypto.Default(), 2, nil)
	if err != nil {
		t.Fatalf("mss.GenerateKey: %v", err)
	}
	s, err := ratchet.NewSender(crypto.Default(), nil)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	env, d, err := s.Introduce([]byte(first))
	if err != nil {
		t.Fatalf("Introduce: %v", err)
	}
	sig, err := id.Sign(d[:])
	if err != nil {
		t.Fatalf("identity Sign: %v", err)
	}
	env.Signature = wire.MarshalSignature(sig)

	pub := id.Public()
	r, err := ratchet.Accept(env, func(d crypto.Digest) bool {
		got, err := wire.UnmarshalSignature(env.Signature)
		return err == nil && mss.Verify(pub, d[:], got)
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return s, r
}

func TestChain_RoundTrip(t *testing.T) {
	s, r := introduce(t, "hello")
	for i, m := range []string{"one", "two", "three"} {
		env, err := s.Seal([]byte(m))
		if err != nil {
			t.Fatalf("Seal #%d: %v", i, err)
		}
		got, err := r.Open(env)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if string(got) != m {
			t.Fatalf("got %q, want %q", got, m)
		}
	}
	if s.Seq() != 4 || r.Seq() != 4 {
		t.Fatalf("sender at %d, receiver at %d, want 4", s.Seq(), r.Seq())
	}
}

func TestAccept_RejectsForgedIntroduction(t *testing.T) {
	s, err := ratchet.NewSender(crypto.Default(), nil)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	env, _, err := s.Introduce([]byte("hi"))
	if err != nil {
		t.Fatalf("Introduce: %v", err)
	}
	if _, err := ratchet.Accept(env, func(crypto.Digest) bool { return false }); !errors.Is(err, ratchet.ErrBadSignature) {
		t.Fatalf("want ErrBadSignature, got %v", err)
	}
	env.Seq = 3
	if _, err := ratchet.Accept(env, func(crypto.Digest) bool { return true }); !errors.Is(err, ratchet.ErrOutOfOrder) {
		t.Fatalf("want ErrOutOfOrder, got %v", err)
	}
}

func TestOpen_OutOfOrderLeavesStateUnchanged(t *testing.T) {
	s, r := introduce(t, "hello")
	first, err := s.Seal([]byte("first"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := s.Seal([]byte("second"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := r.Open(second); !errors.Is(err, ratchet.ErrOutOfOrder) {
		t.Fatalf("want ErrOutOfOrder, got %v", err)
	}
	if _, err := r.Open(first); err != nil {
		t.Fatalf("Open(first): %v", err)
	}
	if _, err := r.Open(first); !errors.Is(err, ratchet.ErrOutOfOrder) {
		t.Fatalf("replay: want ErrOutOfOrder, got %v", err)
	}
	if _, err := r.Open(second); err != nil {
		t.Fatalf("Open(second): %v", err)
	}
}

func TestOpen_TamperingRejected(t *testing.T) {
	s, r := introduce(t, "hello")
	env, err := s.Seal([]byte("pay alice 10"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	forged := env
	forged.Message = []byte("pay alice 99")
	if _, err := r.Open(forged); !errors.Is(err, ratchet.ErrBadSignature) {
		t.Fatalf("altered message: want ErrBadSignature, got %v", err)
	}

	// Swapping the announced key must also break the signature.
	other, err := ratchet.NewSender(crypto.Default(), nil)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	otherEnv, _, err := other.Introduce(nil)
	if err != nil {
		t.Fatalf("Introduce: %v", err)
	}
	swapped := env
	swapped.NextPublicKey = otherEnv.NextPublicKey
	if _, err := r.Open(swapped); !errors.Is(err, ratchet.ErrBadSignature) {
		t.Fatalf("swapped next key: want ErrBadSignature, got %v", err)
	}

	if r.Seq() != 1 {
		t.Fatalf("receiver advanced to %d after rejected envelopes", r.Seq())
	}
	if got, err := r.Open(env); err != nil || string(got) != "pay alice 10" {
		t.Fatalf("genuine envelope: %q, %v", got, err)
	}
}

func TestSeal_BeforeIntroduce(t *testing.T) {
	s, err := ratchet.NewSender(crypto.Default(), nil)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	if _, err := s.Seal([]byte("x")); !errors.Is(err, ratchet.ErrNotIntroduced) {
		t.Fatalf("want ErrNotIntroduced, got %v", err)
	}
}

func TestState_RestoreContinuesChain(t *testing.T) {
	s, r := introduce(t, "hello")
	env, err := s.Seal([]byte("before"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := r.Open(env); err != nil {
		t.Fatalf("Open: %v", err)
	}

	s2, err := ratchet.RestoreSender(s.State(), nil)
	if err != nil {
		t.Fatalf("RestoreSender: %v", err)
	}
	r2, err := ratchet.RestoreReceiver(r.State())
	if err != nil {
		t.Fatalf("RestoreReceiver: %v", err)
	}
	env, err = s2.Seal([]byte("after"))
	if err != nil {
		t.Fatalf("Seal after restore: %v", err)
	}
	if got, err := r2.Open(env); err != nil || string(got) != "after" {
		t.Fatalf("Open after restore: %q, %v", got, err)
	}

	if _, err := ratchet.RestoreReceiver(domain.ReceiverState{Seq: 1, Key: []byte("junk")}); !errors.Is(err, wire.ErrMalformedInput) {
		t.Fatalf("want ErrMalformedInput, got %v", err)
	}
}
