package interfaces

import domaintypes "merklesig/internal/domain/types"

// KeyStore persists key pairs. Private keys are sealed under a passphrase;
// public keys are stored in the clear.
type KeyStore interface {
	SavePrivateKey(passphrase string, name domaintypes.KeyName, priv []byte) error
	LoadPrivateKey(passphrase string, name domaintypes.KeyName) ([]byte, error)
	SavePublicKey(name domaintypes.KeyName, pub []byte) error
	LoadPublicKey(name domaintypes.KeyName) ([]byte, bool, error)
	ListKeys() ([]domaintypes.KeyName, error)
}

// StateStore records the next unused leaf index of each key. Implementations
// must refuse to lower a recorded index.
//
// ReserveNextIndex is a compare-and-swap: it stores expected+1 only if the
// recorded index is still expected, and fails with ErrIndexConflict
// otherwise. Exactly one caller can reserve a given leaf.
type StateStore interface {
	LoadNextIndex(name domaintypes.KeyName) (uint64, error)
	SaveNextIndex(name domaintypes.KeyName, next uint64) error
	ReserveNextIndex(name domaintypes.KeyName, expected uint64) error
}

// RatchetStore keeps per-peer chain state. Sender state holds a private key,
// so conversations are sealed under a passphrase.
type RatchetStore interface {
	SaveConversation(passphrase string, peer domaintypes.Username, conversation domaintypes.Conversation) error
	LoadConversation(passphrase string, peer domaintypes.Username) (domaintypes.Conversation, bool, error)
}
