package interfaces

import (
	"context"

	domaintypes "merklesig/internal/domain/types"
)

// KeyService manages the life cycle of signing keys. Sign persists the
// advanced leaf index before it returns a signature.
type KeyService interface {
	Generate(
		ctx context.Context,
		passphrase string,
		name domaintypes.KeyName,
		leaves int,
		algorithm string,
	) (domaintypes.KeyInfo, error)
	Sign(
		ctx context.Context,
		passphrase string,
		name domaintypes.KeyName,
		message []byte,
	) ([]byte, error)
	Verify(publicKey, message, signature []byte) error
	Info(name domaintypes.KeyName) (domaintypes.KeyInfo, error)
	ListKeys() ([]domaintypes.KeyName, error)
	PublicKey(name domaintypes.KeyName) ([]byte, error)
	ImportPublicKey(name domaintypes.KeyName, publicKey []byte) (domaintypes.KeyInfo, error)
}

// MessageService signs, sends, fetches and verifies ratchet messages.
type MessageService interface {
	SendMessage(
		ctx context.Context,
		passphrase string,
		from domaintypes.Username,
		to domaintypes.Username,
		message []byte,
	) error
	ReceiveMessages(
		ctx context.Context,
		passphrase string,
		me domaintypes.Username,
		limit int,
	) ([]domaintypes.ReceivedMessage, error)
}
