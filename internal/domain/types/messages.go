package types

// Envelope is one signed ratchet message as posted to and fetched from the
// relay. NextPublicKey and Signature are wire-encoded.
type Envelope struct {
	From          Username `json:"from"`
	To            Username `json:"to"`
	Seq           uint64   `json:"seq"`
	Message       []byte   `json:"message"`
	NextPublicKey []byte   `json:"next_public_key"`
	Signature     []byte   `json:"signature"`
	Timestamp     int64    `json:"timestamp"`
}

// ReceivedMessage is an authenticated message returned to the caller.
type ReceivedMessage struct {
	From      Username `json:"from"`
	To        Username `json:"to"`
	Seq       uint64   `json:"seq"`
	Message   []byte   `json:"message"`
	Timestamp int64    `json:"timestamp"`
}
