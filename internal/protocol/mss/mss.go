package mss

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"merklesig/internal/crypto"
	"merklesig/internal/protocol/lamport"
	"merklesig/internal/protocol/merkle"
)

// MaxLeaves bounds N so a key stays addressable by the wire format.
const MaxLeaves = 1 << 20

var (
	// ErrKeyExhausted is returned once all N leaves have been used. The
	// caller must provision a new key pair.
	ErrKeyExhausted = errors.New("all one-time leaves of the key are used")
	// ErrIndexRegression is returned when the next index would move backwards.
	ErrIndexRegression = errors.New("next index may not decrease")
	// ErrLeafCount is returned for a leaf count outside [1, MaxLeaves].
	ErrLeafCount = fmt.Errorf("leaf count must be between 1 and %d", MaxLeaves)
)

// PublicKey is the tree root together with the parameters needed to check
// signatures against it.
type PublicKey struct {
	Algorithm crypto.Algorithm
	LeafCount uint64
	Root      crypto.Digest
}

// Signature is a one-time signature plus the proof that its key is leaf
// Index of the tree.
type Signature struct {
	Algorithm     crypto.Algorithm
	LeafCount     uint64
	Index         uint64
	LeafPublicKey *lamport.PublicKey
	OneTime       *lamport.Signature
	Path          merkle.Path
}

// PrivateKey holds N one-time keys and the tree over them.
type PrivateKey struct {
	hasher crypto.Hasher
	leaves []*lamport.PrivateKey
	tree   *merkle.Tree

	mu   sync.Mutex
	next uint64
}

// LeafHash is the tree leaf for a one-time public key.
func LeafHash(h crypto.Hasher, pk *lamport.PublicKey) crypto.Digest {
	return h.Sum(crypto.DomainLeaf, pk.Bytes())
}

// GenerateKey creates n one-time keys from rand (crypto.Reader when nil)
// and builds the tree over them.
func GenerateKey(h crypto.Hasher, n int, rand io.Reader) (*PrivateKey, error) {
	if n < 1 || n > MaxLeaves {
		return nil, ErrLeafCount
	}
	leaves := make([]*lamport.PrivateKey, n)
	hashes := make([]crypto.Digest, n)
	for i := range leaves {
		sk, err := lamport.GenerateKey(h, rand)
		if err != nil {
			for _, l := range leaves[:i] {
				l.Burn()
			}
			return nil, fmt.Errorf("generating leaf %d: %w", i, err)
		}
		leaves[i] = sk
		hashes[i] = LeafHash(h, sk.Public())
	}
	tree, err := merkle.Build(h, hashes)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{hasher: h, leaves: leaves, tree: tree}, nil
}

// Restore rebuilds a key from its leaves, the stored leaf hashes and the
// persisted next index. Every fresh leaf must hash to its stored digest, so
// a corrupted key file is caught before it can sign. Leaves below next are
// burned.
func Restore(h crypto.Hasher, leaves []*lamport.PrivateKey, hashes []crypto.Digest, next uint64) (*PrivateKey, error) {
	if len(leaves) < 1 || len(leaves) > MaxLeaves {
		return nil, ErrLeafCount
	}
	if len(hashes) != len(leaves) {
		return nil, fmt.Errorf("restore: %d leaves but %d leaf hashes", len(leaves), len(hashes))
	}
	for i, l := range leaves {
		if l.Used() {
			continue
		}
		if LeafHash(h, l.Public()) != hashes[i] {
			return nil, fmt.Errorf("restore: leaf %d does not match its committed hash", i)
		}
	}
	tree, err := merkle.Build(h, hashes)
	if err != nil {
		return nil, err
	}
	sk := &PrivateKey{hasher: h, leaves: leaves, tree: tree}
	if err := sk.SetNextIndex(next); err != nil {
		return nil, err
	}
	return sk, nil
}

// Public returns the public key.
func (sk *PrivateKey) Public() *PublicKey {
	return &PublicKey{
		Algorithm: sk.hasher.Algorithm(),
		LeafCount: uint64(len(sk.leaves)),
		Root:      sk.tree.Root(),
	}
}

// Algorithm returns the hash algorithm of the key.
func (sk *PrivateKey) Algorithm() crypto.Algorithm { return sk.hasher.Algorithm() }

// LeafCount returns N.
func (sk *PrivateKey) LeafCount() uint64 { return uint64(len(sk.leaves)) }

// Leaves returns the one-time keys in tree order. The slice must not be
// modified; it exists for serialisation.
func (sk *PrivateKey) Leaves() []*lamport.PrivateKey { return sk.leaves }

// LeafHashes returns the committed leaf digests in tree order.
func (sk *PrivateKey) LeafHashes() []crypto.Digest {
	out := make([]crypto.Digest, len(sk.leaves))
	for i := range out {
		out[i], _ = sk.tree.Leaf(i)
	}
	return out
}

// NextIndex returns the index the next Sign will claim.
func (sk *PrivateKey) NextIndex() uint64 {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return sk.next
}

// Remaining returns how many signatures the key can still produce.
func (sk *PrivateKey) Remaining() uint64 {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	return uint64(len(sk.leaves)) - sk.next
}

// SetNextIndex moves the counter forward to n, burning every leaf below it.
// Setting the current value is a no-op.
func (sk *PrivateKey) SetNextIndex(n uint64) error {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if n < sk.next {
		return fmt.Errorf("%w: %d < %d", ErrIndexRegression, n, sk.next)
	}
	if n > uint64(len(sk.leaves)) {
		return fmt.Errorf("%w: next index %d of %d", merkle.ErrIndexOutOfRange, n, len(sk.leaves))
	}
	for i := sk.next; i < n; i++ {
		sk.leaves[i].Burn()
	}
	sk.next = n
	return nil
}

func (sk *PrivateKey) claim() (uint64, error) {
	sk.mu.Lock()
	defer sk.mu.Unlock()
	if sk.next >= uint64(len(sk.leaves)) {
		return 0, ErrKeyExhausted
	}
	i := sk.next
	sk.next++
	return i, nil
}

// Sign claims the next unused leaf and signs msg with it.
func (sk *PrivateKey) Sign(msg []byte) (*Signature, error) {
	i, err := sk.claim()
	if err != nil {
		return nil, err
	}
	leaf := sk.leaves[i]
	pub := leaf.Public()
	ots, err := leaf.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("leaf %d: %w", i, err)
	}
	path, err := sk.tree.Path(int(i))
	if err != nil {
		return nil, err
	}
	return &Signature{
		Algorithm:     sk.hasher.Algorithm(),
		LeafCount:     uint64(len(sk.leaves)),
		Index:         i,
		LeafPublicKey: pub,
		OneTime:       ots,
		Path:          path,
	}, nil
}

// Verify reports whether sig is a valid signature of msg under pk: the
// one-time signature must check against the embedded leaf key, and that
// key's leaf hash must authenticate to pk.Root at sig.Index.
func Verify(pk *PublicKey, msg []byte, sig *Signature) bool {
	if pk == nil || sig == nil || sig.LeafPublicKey == nil || sig.OneTime == nil {
		return false
	}
	if pk.LeafCount < 1 || pk.LeafCount > MaxLeaves {
		return false
	}
	if sig.Algorithm != pk.Algorithm || sig.LeafCount != pk.LeafCount || sig.Index >= pk.LeafCount {
		return false
	}
	if sig.LeafPublicKey.Algorithm != pk.Algorithm {
		return false
	}
	if len(sig.Path) != merkle.Height(int(pk.LeafCount)) {
		return false
	}
	h, err := crypto.NewHasher(pk.Algorithm)
	if err != nil {
		return false
	}
	if !sig.LeafPublicKey.Verify(msg, sig.OneTime) {
		return false
	}
	return merkle.Verify(h, LeafHash(h, sig.LeafPublicKey), sig.Index, sig.Path, pk.Root)
}

// Verify is shorthand for Verify(pk, msg, sig).
func (pk *PublicKey) Verify(msg []byte, sig *Signature) bool {
	return Verify(pk, msg, sig)
}
