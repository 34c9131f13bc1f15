// Package store persists key material, signing state and ratchet state.
//
// Two backends implement the domain storage interfaces:
//   - File stores (KeyFileStore, StateFileStore, RatchetFileStore) keep one
//     file per object under the configured home directory and replace files
//     atomically.
//   - LevelStore keeps everything in a single LevelDB database.
//
// Private keys and conversations are sealed with a passphrase-derived key
// (scrypt, then ChaCha20-Poly1305) before they reach either backend. Both
// backends refuse to lower a recorded next index. All methods are safe for
// concurrent use.
package store
