package store

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
)

const convDir = "conversations"

// RatchetFileStore persists per-peer chain state, one sealed file per peer.
type RatchetFileStore struct {
	dir  string
	opts options
	mu   sync.Mutex
}

// NewRatchetFileStore returns a RatchetFileStore rooted at home.
func NewRatchetFileStore(home string, opts ...Option) *RatchetFileStore {
	return &RatchetFileStore{dir: filepath.Join(home, convDir), opts: buildOptions(opts)}
}

// SaveConversation seals and writes the Conversation for peer.
func (s *RatchetFileStore) SaveConversation(passphrase string, peer domain.Username, conv domain.Conversation) error {
	blob, err := sealConversation(passphrase, peer, conv, s.opts.kdf)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFile(filepath.Join(s.dir, peer.String()+".enc"), blob, 0o600)
}

// LoadConversation reads the Conversation for peer.
func (s *RatchetFileStore) LoadConversation(passphrase string, peer domain.Username) (domain.Conversation, bool, error) {
	if err := validName("peer", peer.String()); err != nil {
		return domain.Conversation{}, false, err
	}
	s.mu.Lock()
	blob, err := readFile(filepath.Join(s.dir, peer.String()+".enc"))
	s.mu.Unlock()
	if err != nil || blob == nil {
		return domain.Conversation{}, false, err
	}
	return openConversation(passphrase, peer, blob)
}

func convLabel(peer domain.Username) string { return "conversation:" + peer.String() }

func sealConversation(passphrase string, peer domain.Username, conv domain.Conversation, kdf KDFParams) ([]byte, error) {
	if err := validName("peer", peer.String()); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(raw)
	return seal(passphrase, convLabel(peer), raw, kdf)
}

func openConversation(passphrase string, peer domain.Username, blob []byte) (domain.Conversation, bool, error) {
	raw, err := open(passphrase, convLabel(peer), blob)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	defer crypto.Wipe(raw)
	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return domain.Conversation{}, false, err
	}
	return conv, true, nil
}

// Compile-time assertion that RatchetFileStore implements domain.RatchetStore.
var _ domain.RatchetStore = (*RatchetFileStore)(nil)
