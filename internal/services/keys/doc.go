// Package keys manages the life cycle of hash-based signing keys.
//
// It generates one-time and multi-use keys, seals them through the
// domain.KeyStore, and signs with them. The next leaf index lives in the
// domain.StateStore and is advanced durably before any secret is revealed,
// so a crash between the two steps can only waste a leaf, never reuse one.
package keys
