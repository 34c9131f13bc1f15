// Package merkle builds binary hash trees over an ordered list of leaf
// digests and produces and checks authentication paths.
//
// Leaves are padded up to the next power of two with PaddingLeaf, and every
// internal node is H(DomainNode || left || right). The order of children is
// fixed by leaf order; a path records on which side each sibling sits and
// Verify requires that side to agree with the leaf index.
package merkle
