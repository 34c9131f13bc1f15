package interfaces

import (
	"context"

	domaintypes "merklesig/internal/domain/types"
)

// RelayClient is how we talk to the relay server, all with context.
type RelayClient interface {
	PublishKey(ctx context.Context, key domaintypes.PublishedKey) error
	FetchKey(ctx context.Context, name domaintypes.KeyName) (domaintypes.PublishedKey, error)

	SendMessage(ctx context.Context, envelope domaintypes.Envelope) error
	FetchMessages(
		ctx context.Context,
		username domaintypes.Username,
		limit int,
	) ([]domaintypes.Envelope, error)
	AckMessages(ctx context.Context, username domaintypes.Username, count int) error
}
