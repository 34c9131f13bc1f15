package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"merklesig/internal/domain"
)

const (
	prefixPriv  = "priv/"
	prefixPub   = "pub/"
	prefixState = "state/"
	prefixConv  = "conv/"
)

// LevelStore keeps key material, signing state and conversations in one
// LevelDB database. Writes are synced.
type LevelStore struct {
	db   *leveldb.DB
	opts options
	mu   sync.Mutex // serialises read-modify-write of the next index
}

// OpenLevelStore opens or creates the database at path.
func OpenLevelStore(path string, opts ...Option) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelStore{db: db, opts: buildOptions(opts)}, nil
}

// Close releases the database.
func (s *LevelStore) Close() error { return s.db.Close() }

var syncWrite = &opt.WriteOptions{Sync: true}

func (s *LevelStore) get(key string) ([]byte, error) {
	b, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// SavePrivateKey seals priv under passphrase and stores it.
func (s *LevelStore) SavePrivateKey(passphrase string, name domain.KeyName, priv []byte) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	blob, err := seal(passphrase, privLabel(name), priv, s.opts.kdf)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(prefixPriv+name.String()), blob, syncWrite)
}

// LoadPrivateKey opens the private key stored for name.
func (s *LevelStore) LoadPrivateKey(passphrase string, name domain.KeyName) ([]byte, error) {
	blob, err := s.get(prefixPriv + name.String())
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("private key %q: %w", name, domain.ErrNotFound)
	}
	return open(passphrase, privLabel(name), blob)
}

// SavePublicKey stores pub.
func (s *LevelStore) SavePublicKey(name domain.KeyName, pub []byte) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	return s.db.Put([]byte(prefixPub+name.String()), pub, syncWrite)
}

// LoadPublicKey returns the public key stored for name.
func (s *LevelStore) LoadPublicKey(name domain.KeyName) ([]byte, bool, error) {
	b, err := s.get(prefixPub + name.String())
	if err != nil || b == nil {
		return nil, false, err
	}
	return b, true, nil
}

// ListKeys returns the names of all stored public keys in lexical order.
func (s *LevelStore) ListKeys() ([]domain.KeyName, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(prefixPub)), nil)
	defer it.Release()
	var out []domain.KeyName
	for it.Next() {
		out = append(out, domain.KeyName(it.Key()[len(prefixPub):]))
	}
	return out, it.Error()
}

// LoadNextIndex returns the recorded index for name, or 0 if none.
func (s *LevelStore) LoadNextIndex(name domain.KeyName) (uint64, error) {
	b, err := s.get(prefixState + name.String())
	if err != nil || b == nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: state for %q is %d bytes", domain.ErrMalformedInput, name, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// SaveNextIndex records next for name. Lowering the index is refused.
func (s *LevelStore) SaveNextIndex(name domain.KeyName, next uint64) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.LoadNextIndex(name)
	if err != nil {
		return err
	}
	if next < cur {
		return fmt.Errorf("%w: %s at %d, asked for %d", domain.ErrIndexRegression, name, cur, next)
	}
	return s.db.Put([]byte(prefixState+name.String()), binary.BigEndian.AppendUint64(nil, next), syncWrite)
}

// ReserveNextIndex advances name from expected to expected+1, or fails with
// domain.ErrIndexConflict if the recorded index is no longer expected. The
// database itself is locked to one process by leveldb.
func (s *LevelStore) ReserveNextIndex(name domain.KeyName, expected uint64) error {
	if err := validName("key", name.String()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.LoadNextIndex(name)
	if err != nil {
		return err
	}
	if cur != expected {
		return fmt.Errorf("%w: %s at %d, expected %d", domain.ErrIndexConflict, name, cur, expected)
	}
	return s.db.Put([]byte(prefixState+name.String()), binary.BigEndian.AppendUint64(nil, expected+1), syncWrite)
}

// SaveConversation seals and stores the Conversation for peer.
func (s *LevelStore) SaveConversation(passphrase string, peer domain.Username, conv domain.Conversation) error {
	blob, err := sealConversation(passphrase, peer, conv, s.opts.kdf)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(prefixConv+peer.String()), blob, syncWrite)
}

// LoadConversation reads the Conversation for peer.
func (s *LevelStore) LoadConversation(passphrase string, peer domain.Username) (domain.Conversation, bool, error) {
	blob, err := s.get(prefixConv + peer.String())
	if err != nil || blob == nil {
		return domain.Conversation{}, false, err
	}
	return openConversation(passphrase, peer, blob)
}

var (
	_ domain.KeyStore     = (*LevelStore)(nil)
	_ domain.StateStore   = (*LevelStore)(nil)
	_ domain.RatchetStore = (*LevelStore)(nil)
)
