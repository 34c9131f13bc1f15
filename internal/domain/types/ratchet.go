package types

// SenderState is the persisted half of an outbound chain: the sequence
// number of the next envelope and the wire-encoded one-time private key
// that will sign it.
type SenderState struct {
	Seq uint64 `json:"seq"`
	Key []byte `json:"key"`
}

// ReceiverState is the persisted half of an inbound chain: the sequence
// number expected next and the wire-encoded public key that must verify it.
type ReceiverState struct {
	Seq uint64 `json:"seq"`
	Key []byte `json:"key"`
}

// Conversation persists both chains for a peer.
//
// Pending holds envelopes already sealed (their keys are spent) that the
// relay has not accepted yet, oldest first. Held holds envelopes received
// ahead of a gap in the inbound chain.
type Conversation struct {
	Peer     Username       `json:"peer"`
	Sender   *SenderState   `json:"sender,omitempty"`
	Receiver *ReceiverState `json:"receiver,omitempty"`
	Pending  []Envelope     `json:"pending,omitempty"`
	Held     []Envelope     `json:"held,omitempty"`
}
