// Package message sends and receives signed messages over the relay.
//
// Each peer pair runs a chain of one-time keys (see protocol/ratchet). The
// first envelope of a chain is signed with the sender's multi-use key, whose
// public half the receiver fetches from the relay by username. Later
// envelopes are signed by the one-time key the previous envelope announced.
package message
