// Package ratchet implements a two-party chain of one-time keys.
//
// Every envelope carries the public key that will verify the next one and
// is signed with the one-time key announced by the previous envelope. The
// first envelope of a chain announces the first key and is signed by the
// sender's long-lived key, which the caller supplies.
//
// Concurrency: Sender and Receiver are NOT safe for concurrent use. Callers
// must serialise access per conversation.
package ratchet
