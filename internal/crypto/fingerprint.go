package crypto

import "encoding/hex"

// Fingerprint returns a short hex fingerprint of an encoded public key.
//
// It hashes with the BLAKE3 hasher under DomainFingerprint and truncates to 10
// bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := Default().Sum(DomainFingerprint, pub)
	return hex.EncodeToString(sum[:10])
}
