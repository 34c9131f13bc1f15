package lamport_test

import (
	"bytes"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"testing/iotest"

	"merklesig/internal/crypto"
	"merklesig/internal/protocol/lamport"
)

func newKey(t testing.TB, alg crypto.Algorithm) *lamport.PrivateKey {
	t.Helper()
	h, err := crypto.NewHasher(alg)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	sk, err := lamport.GenerateKey(h, nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return sk
}

func TestSignVerify_RoundTrip(t *testing.T) {
	for _, alg := range []crypto.Algorithm{crypto.BLAKE3, crypto.SHA3_256} {
		sk := newKey(t, alg)
		pk := sk.Public()
		msg := []byte("Hello, world!")

		sig, err := sk.Sign(msg)
		if err != nil {
			t.Fatalf("%s Sign: %v", alg, err)
		}
		if !lamport.Verify(pk, msg, sig) {
			t.Fatalf("%s: valid signature rejected", alg)
		}
		if pk.Verify([]byte("Hello, not world!"), sig) {
			t.Fatalf("%s: signature accepted for a different message", alg)
		}
	}
}

func TestSignVerify_RandomMessages(t *testing.T) {
	rng := rand.New(rand.NewSource(6841))
	for i := 0; i < 16; i++ {
		msg := make([]byte, rng.Intn(4096))
		rng.Read(msg)
		sk := newKey(t, crypto.BLAKE3)
		sig, err := sk.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if !sk.Public().Verify(msg, sig) {
			t.Fatalf("case %d (len %d): valid signature rejected", i, len(msg))
		}
	}
}

func TestSign_SecondCallFails(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	if _, err := sk.Sign([]byte("first")); err != nil {
		t.Fatalf("first Sign: %v", err)
	}
	if !sk.Used() {
		t.Fatal("key not marked used after Sign")
	}
	if _, err := sk.Sign([]byte("second")); !errors.Is(err, lamport.ErrAlreadyUsedKey) {
		t.Fatalf("want ErrAlreadyUsedKey, got %v", err)
	}
	if _, err := sk.Sign([]byte("first")); !errors.Is(err, lamport.ErrAlreadyUsedKey) {
		t.Fatalf("same message again: want ErrAlreadyUsedKey, got %v", err)
	}
}

func TestSign_ConcurrentOnlyOneWins(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := sk.Sign([]byte{byte(i)}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d concurrent signatures succeeded, want 1", wins)
	}
}

func TestVerify_BitFlipInSignature(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	pk := sk.Public()
	msg := []byte("flip me")
	sig, err := sk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	for i := 0; i < lamport.Positions; i++ {
		bit := i % 8
		tampered := *sig
		tampered.Preimages[i][i%crypto.DigestSize] ^= 1 << bit
		if pk.Verify(msg, &tampered) {
			t.Fatalf("flipped bit in position %d accepted", i)
		}
	}
}

func TestVerify_BitFlipInPublicKey(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	pk := sk.Public()
	msg := []byte("flip the key")
	sig, err := sk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	digest := crypto.Default().Sum(crypto.DomainMessage, msg)
	for i := 0; i < lamport.Positions; i++ {
		tampered := *pk
		tampered.Hashes[i][digest.Bit(i)][0] ^= 0x80
		if tampered.Verify(msg, sig) {
			t.Fatalf("flipped public hash at position %d accepted", i)
		}
	}
}

func TestVerify_AlgorithmMismatch(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	sig, _ := sk.Sign([]byte("m"))
	pk := *sk.Public()
	pk.Algorithm = crypto.SHA3_256
	if pk.Verify([]byte("m"), sig) {
		t.Fatal("signature accepted under a different algorithm")
	}
}

func TestVerify_NilInputs(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	sig, _ := sk.Sign([]byte("m"))
	if lamport.Verify(nil, []byte("m"), sig) {
		t.Fatal("nil public key accepted")
	}
	if sk.Public().Verify([]byte("m"), nil) {
		t.Fatal("nil signature accepted")
	}
}

func TestGenerateKey_RandomnessFailure(t *testing.T) {
	_, err := lamport.GenerateKey(crypto.Default(), iotest.ErrReader(errors.New("no entropy")))
	if !errors.Is(err, crypto.ErrRandomnessFailure) {
		t.Fatalf("want ErrRandomnessFailure, got %v", err)
	}
}

func TestBurn(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	if !sk.Burn() {
		t.Fatal("Burn on a fresh key returned false")
	}
	if sk.Burn() {
		t.Fatal("second Burn returned true")
	}
	if _, err := sk.Sign([]byte("m")); !errors.Is(err, lamport.ErrAlreadyUsedKey) {
		t.Fatalf("Sign after Burn: want ErrAlreadyUsedKey, got %v", err)
	}
}

func TestEncoding_RoundTrip(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	pk := sk.Public()
	secrets := sk.AppendSecrets(nil)

	restored, err := lamport.ParsePrivateKey(crypto.Default(), secrets, false)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if !bytes.Equal(restored.Public().Bytes(), pk.Bytes()) {
		t.Fatal("restored key derives a different public key")
	}

	pk2, err := lamport.ParsePublicKey(crypto.BLAKE3, pk.Bytes())
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	msg := []byte("encoded")
	sig, err := restored.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig2, err := lamport.ParseSignature(crypto.BLAKE3, sig.Bytes())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if !pk2.Verify(msg, sig2) {
		t.Fatal("decoded signature rejected by decoded key")
	}
	if _, err := lamport.ParseSignature(crypto.BLAKE3, sig.Bytes()[1:]); err == nil {
		t.Fatal("short signature accepted")
	}
}

func TestAppendSecrets_ZeroAfterSign(t *testing.T) {
	sk := newKey(t, crypto.BLAKE3)
	if _, err := sk.Sign([]byte("m")); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !bytes.Equal(sk.AppendSecrets(nil), make([]byte, lamport.PrivateKeySize)) {
		t.Fatal("consumed key still holds secrets")
	}
}

func BenchmarkSign(b *testing.B) {
	msg := make([]byte, 1_000_000)
	h := crypto.Default()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		sk, err := lamport.GenerateKey(h, nil)
		if err != nil {
			b.Fatalf("GenerateKey: %v", err)
		}
		b.StartTimer()
		if _, err := sk.Sign(msg); err != nil {
			b.Fatalf("Sign: %v", err)
		}
	}
}
