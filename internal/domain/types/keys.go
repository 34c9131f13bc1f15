package types

// KeyInfo summarises a stored key pair without touching its secrets.
type KeyInfo struct {
	Name        KeyName     `json:"name"`
	Scheme      string      `json:"scheme"`
	Algorithm   string      `json:"algorithm"`
	LeafCount   uint64      `json:"leaf_count"`
	NextIndex   uint64      `json:"next_index"`
	Remaining   uint64      `json:"remaining"`
	Fingerprint Fingerprint `json:"fingerprint"`
}

// Exhausted reports whether the key can no longer sign.
func (k KeyInfo) Exhausted() bool { return k.Remaining == 0 }

// PublishedKey is a wire-encoded public key held by the relay.
type PublishedKey struct {
	Name      KeyName `json:"name"`
	PublicKey []byte  `json:"public_key"`
}
