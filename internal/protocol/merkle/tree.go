package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"merklesig/internal/crypto"
)

var (
	// ErrIndexOutOfRange is returned for a leaf index outside the tree.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	// ErrEmptyTree is returned when Build is given no leaves.
	ErrEmptyTree = errors.New("merkle tree needs at least one leaf")
)

// Side records where a sibling sits relative to the running hash.
type Side uint8

const (
	// SiblingRight: the running hash is the left child.
	SiblingRight Side = 0
	// SiblingLeft: the running hash is the right child.
	SiblingLeft Side = 1
)

// Node is one step of an authentication path.
type Node struct {
	Sibling crypto.Digest
	Side    Side
}

// Path is the list of siblings from a leaf up to, but excluding, the root.
type Path []Node

// Tree is an immutable Merkle tree. levels[0] holds the padded leaves and the
// last level holds the root.
type Tree struct {
	hasher    crypto.Hasher
	leafCount int
	levels    [][]crypto.Digest
}

// PaddingLeaf is the digest used for every slot past the last real leaf.
func PaddingLeaf(h crypto.Hasher) crypto.Digest {
	return h.Sum(crypto.DomainPadding)
}

// HashNode combines two children in order.
func HashNode(h crypto.Hasher, left, right crypto.Digest) crypto.Digest {
	return h.Sum(crypto.DomainNode, left[:], right[:])
}

// Height returns the path length for a tree with n leaves.
func Height(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Build hashes leaves pairwise, level by level, up to a single root.
func Build(h crypto.Hasher, leaves []crypto.Digest) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	height := Height(len(leaves))
	width := 1 << height

	base := make([]crypto.Digest, width)
	copy(base, leaves)
	if width > len(leaves) {
		pad := PaddingLeaf(h)
		for i := len(leaves); i < width; i++ {
			base[i] = pad
		}
	}

	levels := make([][]crypto.Digest, 0, height+1)
	levels = append(levels, base)
	for cur := base; len(cur) > 1; {
		next := make([]crypto.Digest, len(cur)/2)
		for i := range next {
			next[i] = HashNode(h, cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
		cur = next
	}
	return &Tree{hasher: h, leafCount: len(leaves), levels: levels}, nil
}

// Root returns the root digest.
func (t *Tree) Root() crypto.Digest { return t.levels[len(t.levels)-1][0] }

// LeafCount returns the number of real (unpadded) leaves.
func (t *Tree) LeafCount() int { return t.leafCount }

// Height returns the number of levels above the leaves.
func (t *Tree) Height() int { return len(t.levels) - 1 }

// Leaf returns leaf i.
func (t *Tree) Leaf(i int) (crypto.Digest, error) {
	if i < 0 || i >= t.leafCount {
		return crypto.Digest{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, t.leafCount)
	}
	return t.levels[0][i], nil
}

// Path returns the authentication path for leaf i.
func (t *Tree) Path(i int) (Path, error) {
	if i < 0 || i >= t.leafCount {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, t.leafCount)
	}
	path := make(Path, 0, t.Height())
	idx := i
	for level := 0; level < t.Height(); level++ {
		if idx%2 == 0 {
			path = append(path, Node{Sibling: t.levels[level][idx+1], Side: SiblingRight})
		} else {
			path = append(path, Node{Sibling: t.levels[level][idx-1], Side: SiblingLeft})
		}
		idx /= 2
	}
	return path, nil
}

// RootFromPath folds leaf up through path and returns the resulting root. ok is false
// when a node's side contradicts index or index does not fit in the path.
func RootFromPath(h crypto.Hasher, leaf crypto.Digest, index uint64, path Path) (root crypto.Digest, ok bool) {
	if len(path) < 64 && index>>uint(len(path)) != 0 {
		return crypto.Digest{}, false
	}
	cur := leaf
	for level, n := range path {
		isRight := level < 64 && (index>>uint(level))&1 == 1
		switch {
		case n.Side == SiblingRight && !isRight:
			cur = HashNode(h, cur, n.Sibling)
		case n.Side == SiblingLeft && isRight:
			cur = HashNode(h, n.Sibling, cur)
		default:
			return crypto.Digest{}, false
		}
	}
	return cur, true
}

// Verify reports whether leaf sits at index under root.
func Verify(h crypto.Hasher, leaf crypto.Digest, index uint64, path Path, root crypto.Digest) bool {
	got, ok := RootFromPath(h, leaf, index, path)
	if !ok {
		return false
	}
	return got.Equal(root)
}
