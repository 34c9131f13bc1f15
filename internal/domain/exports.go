package domain

import (
	interfaces "merklesig/internal/domain/interfaces"
	types "merklesig/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username        = types.Username
	KeyName         = types.KeyName
	Fingerprint     = types.Fingerprint
	KeyInfo         = types.KeyInfo
	PublishedKey    = types.PublishedKey
	Envelope        = types.Envelope
	ReceivedMessage = types.ReceivedMessage
	SenderState     = types.SenderState
	ReceiverState   = types.ReceiverState
	Conversation    = types.Conversation
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyService     = interfaces.KeyService
	MessageService = interfaces.MessageService
	RelayClient    = interfaces.RelayClient
	KeyStore       = interfaces.KeyStore
	StateStore     = interfaces.StateStore
	RatchetStore   = interfaces.RatchetStore
)
