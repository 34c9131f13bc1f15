package relay

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"merklesig/internal/domain"
)

var (
	// ErrKeyConflict is returned when a different key is already published
	// under a name.
	ErrKeyConflict = errors.New("a different key is already published under this name")
	errBadName     = errors.New("invalid name")
)

// Mailbox stores the relay's published keys and queued envelopes in LevelDB.
//
// Layout:
//
//	key/<name>            encoded public key
//	seq/<user>            next message sequence (u64 big endian)
//	msg/<user>/<seq u64>  JSON envelope
type Mailbox struct {
	db *leveldb.DB
	mu sync.Mutex
}

// OpenMailbox opens the database at dir, or an in-memory one when dir is
// empty.
func OpenMailbox(dir string) (*Mailbox, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if dir == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open mailbox: %w", err)
	}
	return &Mailbox{db: db}, nil
}

// Close releases the database.
func (m *Mailbox) Close() error { return m.db.Close() }

func checkName(s string) error {
	if s == "" || bytes.ContainsAny([]byte(s), "/\x00") {
		return fmt.Errorf("%w: %q", errBadName, s)
	}
	return nil
}

// PutKey publishes pub under name. Re-publishing the same bytes is a no-op.
func (m *Mailbox) PutKey(name domain.KeyName, pub []byte) error {
	if err := checkName(name.String()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := []byte("key/" + name.String())
	cur, err := m.db.Get(k, nil)
	switch {
	case err == nil && bytes.Equal(cur, pub):
		return nil
	case err == nil:
		return ErrKeyConflict
	case !errors.Is(err, leveldb.ErrNotFound):
		return err
	}
	return m.db.Put(k, pub, nil)
}

// Key returns the key published under name.
func (m *Mailbox) Key(name domain.KeyName) ([]byte, error) {
	b, err := m.db.Get([]byte("key/"+name.String()), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// Enqueue appends env to the mailbox of env.To.
func (m *Mailbox) Enqueue(env domain.Envelope) error {
	if err := checkName(env.To.String()); err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seqKey := []byte("seq/" + env.To.String())
	var seq uint64
	if b, err := m.db.Get(seqKey, nil); err == nil && len(b) == 8 {
		seq = binary.BigEndian.Uint64(b)
	} else if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(msgKey(env.To, seq), raw)
	batch.Put(seqKey, binary.BigEndian.AppendUint64(nil, seq+1))
	return m.db.Write(batch, nil)
}

// Fetch returns up to limit queued envelopes for user, oldest first. limit
// <= 0 returns all of them.
func (m *Mailbox) Fetch(user domain.Username, limit int) ([]domain.Envelope, error) {
	it := m.db.NewIterator(util.BytesPrefix(msgPrefix(user)), nil)
	defer it.Release()
	out := []domain.Envelope{}
	for it.Next() {
		if limit > 0 && len(out) == limit {
			break
		}
		var env domain.Envelope
		if err := json.Unmarshal(it.Value(), &env); err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, it.Error()
}

// Ack deletes the first count envelopes of user's mailbox and returns how
// many were removed.
func (m *Mailbox) Ack(user domain.Username, count int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.db.NewIterator(util.BytesPrefix(msgPrefix(user)), nil)
	batch := new(leveldb.Batch)
	for batch.Len() < count && it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return 0, err
	}
	return batch.Len(), m.db.Write(batch, nil)
}

// Queued returns the number of envelopes waiting for user.
func (m *Mailbox) Queued(user domain.Username) (int, error) {
	it := m.db.NewIterator(util.BytesPrefix(msgPrefix(user)), nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}

func msgPrefix(user domain.Username) []byte { return []byte("msg/" + user.String() + "/") }

func msgKey(user domain.Username, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(msgPrefix(user), seq)
}
