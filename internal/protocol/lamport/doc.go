// Package lamport implements Lamport one-time signatures over a
// domain-tagged 256-bit hash.
//
// A private key holds two random secrets per digest bit; its public key holds
// their hashes. Signing reveals, for every bit of H(message), the secret that
// matches that bit. Revealing secrets for two different digests lets an
// attacker mix them into a forgery, so a PrivateKey refuses to sign twice:
// the first Sign flips it to consumed with a compare-and-swap and wipes its
// secrets, and every later call returns ErrAlreadyUsedKey.
package lamport
