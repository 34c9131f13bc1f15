// Package mss extends Lamport one-time keys to N signatures under a single
// public key, the root of a Merkle tree over the hashed one-time public keys.
//
// A PrivateKey owns N one-time leaves and a next-index counter. Sign claims
// the counter under a mutex, signs with that leaf and attaches the leaf's
// authentication path. The counter is the only mutable state; callers that
// outlive the process must persist NextIndex after every Sign and restore it
// with SetNextIndex, which refuses to move backwards.
package mss
