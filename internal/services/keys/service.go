package keys

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"merklesig/internal/crypto"
	"merklesig/internal/domain"
	"merklesig/internal/protocol/lamport"
	"merklesig/internal/protocol/mss"
	"merklesig/internal/wire"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
	// maxReserveAttempts bounds how often Sign retries after losing a leaf
	// to a concurrent signer.
	maxReserveAttempts = 8
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrKeyExists is returned when Generate or ImportPublicKey would
	// overwrite a stored key.
	ErrKeyExists = errors.New("a key with this name already exists")
)

// Service generates, stores and uses signing keys.
type Service struct {
	keys  domain.KeyStore
	state domain.StateStore
	log   *zap.Logger
	rand  io.Reader

	// mu serialises signing through this Service. Other services and
	// processes are arbitrated by the state store's ReserveNextIndex.
	mu sync.Mutex
}

// New returns a key service backed by the given stores. A nil logger
// disables logging.
func New(keys domain.KeyStore, state domain.StateStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{keys: keys, state: state, log: log.Named("keys")}
}

// WithRand replaces the randomness source used for key generation.
func (s *Service) WithRand(r io.Reader) *Service {
	s.rand = r
	return s
}

// Generate creates a key named name. leaves == 0 creates a one-time key;
// otherwise a multi-use key with that many leaves. algorithm is a hash name
// accepted by crypto.ParseAlgorithm.
func (s *Service) Generate(
	ctx context.Context,
	passphrase string,
	name domain.KeyName,
	leaves int,
	algorithm string,
) (domain.KeyInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.KeyInfo{}, err
	}
	if !isSecurePassphrase(passphrase) {
		return domain.KeyInfo{}, ErrWeakPassphrase
	}
	if leaves < 0 || leaves > mss.MaxLeaves {
		return domain.KeyInfo{}, mss.ErrLeafCount
	}
	alg, err := crypto.ParseAlgorithm(algorithm)
	if err != nil {
		return domain.KeyInfo{}, err
	}
	h, err := crypto.NewHasher(alg)
	if err != nil {
		return domain.KeyInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.keys.LoadPublicKey(name); err != nil {
		return domain.KeyInfo{}, err
	} else if ok {
		return domain.KeyInfo{}, fmt.Errorf("%w: %s", ErrKeyExists, name)
	}

	var priv, pub []byte
	if leaves == 0 {
		sk, err := lamport.GenerateKey(h, s.rand)
		if err != nil {
			return domain.KeyInfo{}, err
		}
		priv, pub = wire.MarshalOneTimePrivateKey(sk), wire.MarshalOneTimePublicKey(sk.Public())
	} else {
		sk, err := mss.GenerateKey(h, leaves, s.rand)
		if err != nil {
			return domain.KeyInfo{}, err
		}
		priv, pub = wire.MarshalPrivateKey(sk), wire.MarshalPublicKey(sk.Public())
	}
	defer crypto.Wipe(priv)

	if err := s.keys.SavePrivateKey(passphrase, name, priv); err != nil {
		return domain.KeyInfo{}, fmt.Errorf("save private key: %w", err)
	}
	if err := s.state.SaveNextIndex(name, 0); err != nil {
		return domain.KeyInfo{}, fmt.Errorf("save state: %w", err)
	}
	if err := s.keys.SavePublicKey(name, pub); err != nil {
		return domain.KeyInfo{}, fmt.Errorf("save public key: %w", err)
	}
	s.log.Info("generated key",
		zap.String("key", name.String()),
		zap.Int("leaves", leaves),
		zap.Stringer("hash", alg),
	)
	return s.info(name, pub)
}

// Sign signs message with the named key and returns the encoded signature.
// The leaf is reserved in the state store before it is used; if another
// signer reserves it first, Sign reloads the index and tries the next leaf.
func (s *Service) Sign(
	ctx context.Context,
	passphrase string,
	name domain.KeyName,
	message []byte,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	priv, err := s.keys.LoadPrivateKey(passphrase, name)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(priv)
	hdr, err := wire.PeekHeader(priv)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := s.state.LoadNextIndex(name)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		var sig []byte
		if hdr.Scheme == wire.SchemeOneTime {
			sig, err = s.signOneTime(name, priv, next, message)
		} else {
			sig, err = s.signMultiUse(name, priv, next, message)
		}
		if errors.Is(err, domain.ErrIndexConflict) && attempt < maxReserveAttempts {
			s.log.Debug("leaf taken by another signer, retrying",
				zap.String("key", name.String()),
				zap.Uint64("index", next),
			)
			continue
		}
		return sig, err
	}
}

func (s *Service) signOneTime(name domain.KeyName, priv []byte, next uint64, message []byte) ([]byte, error) {
	sk, err := wire.UnmarshalOneTimePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	if next > 0 || sk.Used() {
		sk.Burn()
		s.log.Warn("one-time key already used", zap.String("key", name.String()))
		return nil, lamport.ErrAlreadyUsedKey
	}
	if err := s.state.ReserveNextIndex(name, 0); err != nil {
		return nil, fmt.Errorf("reserve one-time key: %w", err)
	}
	sig, err := sk.Sign(message)
	if err != nil {
		return nil, err
	}
	s.log.Debug("signed with one-time key", zap.String("key", name.String()))
	return wire.MarshalOneTimeSignature(sig), nil
}

func (s *Service) signMultiUse(name domain.KeyName, priv []byte, next uint64, message []byte) ([]byte, error) {
	sk, err := wire.UnmarshalPrivateKey(priv, next)
	if err != nil {
		return nil, err
	}
	if sk.Remaining() == 0 {
		s.log.Warn("key exhausted", zap.String("key", name.String()), zap.Uint64("leaves", sk.LeafCount()))
		return nil, mss.ErrKeyExhausted
	}
	if err := s.state.ReserveNextIndex(name, next); err != nil {
		return nil, fmt.Errorf("reserve leaf %d: %w", next, err)
	}
	sig, err := sk.Sign(message)
	if err != nil {
		return nil, err
	}
	if sig.Index != next {
		return nil, fmt.Errorf("signed with leaf %d but reserved %d", sig.Index, next)
	}
	s.log.Debug("reserved leaf",
		zap.String("key", name.String()),
		zap.Uint64("index", sig.Index),
		zap.Uint64("remaining", sk.Remaining()),
	)
	return wire.MarshalSignature(sig), nil
}

// Verify checks an encoded signature against an encoded public key. It
// returns domain.ErrVerificationFailed for a well-formed signature that does
// not verify, and a wire error for malformed input.
func (s *Service) Verify(publicKey, message, signature []byte) error {
	return Verify(publicKey, message, signature)
}

// Verify is the stateless form of Service.Verify.
func Verify(publicKey, message, signature []byte) error {
	hdr, err := wire.PeekHeader(publicKey)
	if err != nil {
		return err
	}
	var ok bool
	switch hdr.Scheme {
	case wire.SchemeOneTime:
		pk, err := wire.UnmarshalOneTimePublicKey(publicKey)
		if err != nil {
			return err
		}
		sig, err := wire.UnmarshalOneTimeSignature(signature)
		if err != nil {
			return err
		}
		ok = lamport.Verify(pk, message, sig)
	default:
		pk, err := wire.UnmarshalPublicKey(publicKey)
		if err != nil {
			return err
		}
		sig, err := wire.UnmarshalSignature(signature)
		if err != nil {
			return err
		}
		ok = mss.Verify(pk, message, sig)
	}
	if !ok {
		return domain.ErrVerificationFailed
	}
	return nil
}

// Info summarises the named key from its public half and recorded state.
func (s *Service) Info(name domain.KeyName) (domain.KeyInfo, error) {
	pub, err := s.PublicKey(name)
	if err != nil {
		return domain.KeyInfo{}, err
	}
	return s.info(name, pub)
}

func (s *Service) info(name domain.KeyName, pub []byte) (domain.KeyInfo, error) {
	hdr, err := wire.PeekHeader(pub)
	if err != nil {
		return domain.KeyInfo{}, err
	}
	next, err := s.state.LoadNextIndex(name)
	if err != nil {
		return domain.KeyInfo{}, err
	}
	count := uint64(hdr.LeafCount)
	if hdr.Scheme == wire.SchemeOneTime {
		count = 1
	}
	info := domain.KeyInfo{
		Name:        name,
		Scheme:      hdr.Scheme.String(),
		Algorithm:   hdr.Algorithm.String(),
		LeafCount:   count,
		NextIndex:   next,
		Fingerprint: domain.Fingerprint(crypto.Fingerprint(pub)),
	}
	if next < count {
		info.Remaining = count - next
	}
	return info, nil
}

// ListKeys returns the names of all stored keys, own and imported.
func (s *Service) ListKeys() ([]domain.KeyName, error) {
	return s.keys.ListKeys()
}

// PublicKey returns the encoded public key stored under name.
func (s *Service) PublicKey(name domain.KeyName) ([]byte, error) {
	pub, ok, err := s.keys.LoadPublicKey(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("key %q: %w", name, domain.ErrNotFound)
	}
	return pub, nil
}

// ImportPublicKey validates and stores someone else's public key. It never
// replaces a stored key: importing the identical bytes again is a no-op,
// anything else under an existing name fails with ErrKeyExists.
func (s *Service) ImportPublicKey(name domain.KeyName, publicKey []byte) (domain.KeyInfo, error) {
	if _, err := CheckPublicKey(publicKey); err != nil {
		return domain.KeyInfo{}, err
	}
	existing, ok, err := s.keys.LoadPublicKey(name)
	if err != nil {
		return domain.KeyInfo{}, err
	}
	if ok {
		if subtle.ConstantTimeCompare(existing, publicKey) == 1 {
			return s.info(name, existing)
		}
		s.log.Warn("refused to replace stored public key", zap.String("key", name.String()))
		return domain.KeyInfo{}, fmt.Errorf("import %q: %w", name, ErrKeyExists)
	}
	if err := s.keys.SavePublicKey(name, publicKey); err != nil {
		return domain.KeyInfo{}, err
	}
	s.log.Info("imported public key", zap.String("key", name.String()))
	return s.info(name, publicKey)
}

// CheckPublicKey fully decodes an encoded public key of either scheme and
// returns its header.
func CheckPublicKey(publicKey []byte) (wire.Header, error) {
	hdr, err := wire.PeekHeader(publicKey)
	if err != nil {
		return wire.Header{}, err
	}
	if hdr.Kind != wire.KindPublicKey {
		return wire.Header{}, fmt.Errorf("%w: expected a public key, got %s", domain.ErrMalformedInput, hdr.Kind)
	}
	if hdr.Scheme == wire.SchemeOneTime {
		_, err = wire.UnmarshalOneTimePublicKey(publicKey)
	} else {
		_, err = wire.UnmarshalPublicKey(publicKey)
	}
	if err != nil {
		return wire.Header{}, err
	}
	return hdr, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.KeyService.
var _ domain.KeyService = (*Service)(nil)
