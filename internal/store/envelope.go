package store

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
)

// sealedFormatVersion is the version of the sealed blob written to disk.
const sealedFormatVersion = 1

// KDFParams are the scrypt cost parameters used when sealing.
type KDFParams struct {
	N, R, P int
}

// DefaultKDF is used by stores created without WithKDF.
var DefaultKDF = KDFParams{N: 1 << 15, R: 8, P: 1}

// Option configures a store.
type Option func(*options)

type options struct {
	kdf KDFParams
}

// WithKDF overrides the scrypt parameters for newly sealed objects. Opening
// always uses the parameters recorded in the blob.
func WithKDF(p KDFParams) Option {
	return func(o *options) { o.kdf = p }
}

func buildOptions(opts []Option) options {
	o := options{kdf: DefaultKDF}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// sealed is the JSON structure holding the ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw. label is bound as
// associated data so a blob cannot be moved to another name.
func seal(passphrase string, label string, raw []byte, kdf KDFParams) ([]byte, error) {
	var salt [16]byte
	if err := crypto.FillRandom(nil, salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; the salt makes every key unique
	ct := aead.Seal(nil, nonce[:], raw, associatedData(salt[:], label))

	return json.Marshal(sealed{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: ct,
	})
}

// open reverses seal.
func open(passphrase string, label string, b []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadPassphrase, err)
	}
	if s.V > sealedFormatVersion {
		return nil, fmt.Errorf("%w: sealed blob version %d", domain.ErrUnsupportedVersion, s.V)
	}
	key, err := scrypt.Key([]byte(passphrase), s.Salt, s.N, s.R, s.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], s.Cipher, associatedData(s.Salt, label))
	if err != nil {
		return nil, domain.ErrBadPassphrase
	}
	return pt, nil
}

func associatedData(salt []byte, label string) []byte {
	ad := make([]byte, 0, len(salt)+len(label))
	ad = append(ad, salt...)
	return append(ad, label...)
}
