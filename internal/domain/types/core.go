package types

// Username identifies a relay participant.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// KeyName is the local label of a stored key pair. Keys published to the
// relay are addressed by the same name.
type KeyName string

// String returns the string form of the key name.
func (n KeyName) String() string { return string(n) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
