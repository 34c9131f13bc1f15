package merkle_test

import (
	"errors"
	"fmt"
	"testing"

	"merklesig/internal/crypto"
	"merklesig/internal/protocol/merkle"
)

func leavesOf(h crypto.Hasher, items ...string) []crypto.Digest {
	out := make([]crypto.Digest, len(items))
	for i, it := range items {
		out[i] = h.Sum(crypto.DomainLeaf, []byte(it))
	}
	return out
}

func numbered(h crypto.Hasher, n int) []crypto.Digest {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("leaf-%d", i)
	}
	return leavesOf(h, items...)
}

func TestPaths_VerifyForEveryLeaf(t *testing.T) {
	h := crypto.Default()
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 9, 16, 33} {
		leaves := numbered(h, n)
		tree, err := merkle.Build(h, leaves)
		if err != nil {
			t.Fatalf("Build(%d): %v", n, err)
		}
		if tree.LeafCount() != n {
			t.Fatalf("LeafCount = %d, want %d", tree.LeafCount(), n)
		}
		if tree.Height() != merkle.Height(n) {
			t.Fatalf("n=%d: Height = %d, want %d", n, tree.Height(), merkle.Height(n))
		}
		for i := 0; i < n; i++ {
			path, err := tree.Path(i)
			if err != nil {
				t.Fatalf("n=%d Path(%d): %v", n, i, err)
			}
			if len(path) != tree.Height() {
				t.Fatalf("n=%d: path length %d, want %d", n, len(path), tree.Height())
			}
			if !merkle.Verify(h, leaves[i], uint64(i), path, tree.Root()) {
				t.Fatalf("n=%d: leaf %d does not verify", n, i)
			}
		}
	}
}

func TestStringLeafVectors(t *testing.T) {
	h := crypto.Default()
	hey := make([]string, 1000)
	for i := range hey {
		hey[i] = "hey"
	}
	vectors := [][]string{
		{"hello, world"},
		{"one", "two", "three"},
		{"one", "two"},
		hey,
	}
	for _, v := range vectors {
		leaves := leavesOf(h, v...)
		tree, err := merkle.Build(h, leaves)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		path, err := tree.Path(0)
		if err != nil {
			t.Fatalf("Path: %v", err)
		}
		if !merkle.Verify(h, leaves[0], 0, path, tree.Root()) {
			t.Fatalf("len %d: leaf 0 does not verify", len(v))
		}
		if len(path) > 0 {
			path[0].Side ^= 1
			if merkle.Verify(h, leaves[0], 0, path, tree.Root()) {
				t.Fatalf("len %d: flipped side accepted", len(v))
			}
		}
	}
}

func TestSingleLeaf_RootIsLeaf(t *testing.T) {
	h := crypto.Default()
	leaves := leavesOf(h, "only")
	tree, err := merkle.Build(h, leaves)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tree.Root() != leaves[0] {
		t.Fatal("root of a one-leaf tree is not the leaf")
	}
}

func TestPadding_UsesSentinel(t *testing.T) {
	h := crypto.Default()
	leaves := leavesOf(h, "a", "b", "c")
	tree, err := merkle.Build(h, leaves)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pad := merkle.PaddingLeaf(h)
	if pad != h.Sum(crypto.DomainPadding) {
		t.Fatal("padding sentinel changed")
	}
	want := merkle.HashNode(h,
		merkle.HashNode(h, leaves[0], leaves[1]),
		merkle.HashNode(h, leaves[2], pad),
	)
	if tree.Root() != want {
		t.Fatal("root does not match manual computation with sentinel padding")
	}
}

func TestNodeHash_OrderMatters(t *testing.T) {
	h := crypto.Default()
	l := leavesOf(h, "left", "right")
	if merkle.HashNode(h, l[0], l[1]) == merkle.HashNode(h, l[1], l[0]) {
		t.Fatal("swapping children does not change the node hash")
	}
	a, _ := merkle.Build(h, l)
	b, _ := merkle.Build(h, []crypto.Digest{l[1], l[0]})
	if a.Root() == b.Root() {
		t.Fatal("swapping leaves does not change the root")
	}
}

func TestNodeHash_DomainSeparatedFromLeaf(t *testing.T) {
	h := crypto.Default()
	l := leavesOf(h, "x", "y")
	node := merkle.HashNode(h, l[0], l[1])
	concat := append(l[0].Bytes(), l[1].Bytes()...)
	if node == h.Sum(crypto.DomainLeaf, concat) || node == h.Sum(crypto.DomainMessage, concat) {
		t.Fatal("node hash collides with another domain")
	}
}

func TestVerify_Rejections(t *testing.T) {
	h := crypto.Default()
	leaves := numbered(h, 8)
	tree, _ := merkle.Build(h, leaves)
	path, _ := tree.Path(5)
	root := tree.Root()

	if merkle.Verify(h, leaves[4], 5, path, root) {
		t.Fatal("wrong leaf accepted")
	}
	if merkle.Verify(h, leaves[5], 4, path, root) {
		t.Fatal("wrong index accepted")
	}
	if merkle.Verify(h, leaves[5], 5+8, path, root) {
		t.Fatal("index wider than the path accepted")
	}
	if merkle.Verify(h, leaves[5], 5, path[:2], root) {
		t.Fatal("truncated path accepted")
	}
	bad := append(merkle.Path(nil), path...)
	bad[1].Sibling[0] ^= 1
	if merkle.Verify(h, leaves[5], 5, bad, root) {
		t.Fatal("tampered sibling accepted")
	}
	other := crypto.Default().Sum(crypto.DomainNode, []byte("other root"))
	if merkle.Verify(h, leaves[5], 5, path, other) {
		t.Fatal("wrong root accepted")
	}
}

func TestPath_OutOfRange(t *testing.T) {
	h := crypto.Default()
	tree, _ := merkle.Build(h, numbered(h, 5))
	for _, i := range []int{-1, 5, 7, 100} {
		if _, err := tree.Path(i); !errors.Is(err, merkle.ErrIndexOutOfRange) {
			t.Fatalf("Path(%d): want ErrIndexOutOfRange, got %v", i, err)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	if _, err := merkle.Build(crypto.Default(), nil); !errors.Is(err, merkle.ErrEmptyTree) {
		t.Fatalf("want ErrEmptyTree, got %v", err)
	}
}
