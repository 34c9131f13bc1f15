package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"merklesig/internal/domain"
	"merklesig/internal/wire"
)

const (
	keysDir    = "keys"
	privSuffix = ".key"
	pubSuffix  = ".pub"
)

// KeyFileStore keeps each key pair as two files under <home>/keys: the sealed
// private key and the armored public key.
type KeyFileStore struct {
	dir  string
	opts options
	mu   sync.Mutex
}

// NewKeyFileStore returns a KeyFileStore rooted at home.
func NewKeyFileStore(home string, opts ...Option) *KeyFileStore {
	return &KeyFileStore{dir: filepath.Join(home, keysDir), opts: buildOptions(opts)}
}

// SavePrivateKey seals priv under passphrase and writes it.
func (s *KeyFileStore) SavePrivateKey(passphrase string, name domain.KeyName, priv []byte) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	blob, err := seal(passphrase, privLabel(name), priv, s.opts.kdf)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(filepath.Join(s.dir, name.String()+privSuffix), blob, 0o600)
}

// LoadPrivateKey reads and opens the private key for name.
func (s *KeyFileStore) LoadPrivateKey(passphrase string, name domain.KeyName) ([]byte, error) {
	if err := validName("key", name.String()); err != nil {
		return nil, err
	}
	s.mu.Lock()
	blob, err := readFile(filepath.Join(s.dir, name.String()+privSuffix))
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("private key %q: %w", name, domain.ErrNotFound)
	}
	return open(passphrase, privLabel(name), blob)
}

// SavePublicKey writes the armored form of pub.
func (s *KeyFileStore) SavePublicKey(name domain.KeyName, pub []byte) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(filepath.Join(s.dir, name.String()+pubSuffix), []byte(wire.Armor(pub)+"\n"), 0o644)
}

// LoadPublicKey reads the public key for name.
func (s *KeyFileStore) LoadPublicKey(name domain.KeyName) ([]byte, bool, error) {
	if err := validName("key", name.String()); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	b, err := readFile(filepath.Join(s.dir, name.String()+pubSuffix))
	s.mu.Unlock()
	if err != nil || b == nil {
		return nil, false, err
	}
	pub, err := wire.Dearmor(string(b))
	if err != nil {
		return nil, false, err
	}
	return pub, true, nil
}

// ListKeys returns the names of all stored public keys in lexical order.
func (s *KeyFileStore) ListKeys() ([]domain.KeyName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []domain.KeyName
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), pubSuffix); ok && !e.IsDir() {
			out = append(out, domain.KeyName(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func privLabel(name domain.KeyName) string { return "key:" + name.String() }

// Compile-time assertion that KeyFileStore implements domain.KeyStore.
var _ domain.KeyStore = (*KeyFileStore)(nil)
