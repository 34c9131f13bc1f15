// Package crypto exposes the hash and randomness primitives every signature
// scheme in merklesig is built from.
//
// Contents
//
//   - Fixed-width Digest and Secret types (DigestSize bytes each)
//   - Domain-tagged hashing over BLAKE3-256 or SHA3-256 (Hasher, Domain)
//   - Secret generation from a CSPRNG (RandomSecret)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Every hash computed by the library is prefixed with exactly one Domain byte,
// so a message digest, a one-time public key half, a tree leaf and a tree node
// never share an input space. RandomSecret never falls back to a weaker source:
// a failing reader yields ErrRandomnessFailure and the caller must abort.
package crypto
