package app

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"merklesig/internal/domain"
	"merklesig/internal/relay"
	keysvc "merklesig/internal/services/keys"
	messagesvc "merklesig/internal/services/message"
	"merklesig/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Keys     *keysvc.Service
	Messages domain.MessageService
	Relay    *relay.HTTP // nil when no relay is configured
	Log      *zap.Logger
	HTTP     *http.Client

	close func() error
}

// NewWire constructs the dependency graph from cfg. log may be nil.
func NewWire(cfg Config, log *zap.Logger) (*Wire, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	var (
		keyStore     domain.KeyStore
		stateStore   domain.StateStore
		ratchetStore domain.RatchetStore
		closer       = func() error { return nil }
	)
	switch cfg.Backend {
	case "", BackendFile:
		keyStore = store.NewKeyFileStore(cfg.Home, cfg.StoreOptions...)
		stateStore = store.NewStateFileStore(cfg.Home)
		ratchetStore = store.NewRatchetFileStore(cfg.Home, cfg.StoreOptions...)
	case BackendLevelDB:
		lvl, err := store.OpenLevelStore(filepath.Join(cfg.Home, "db"), cfg.StoreOptions...)
		if err != nil {
			return nil, err
		}
		keyStore, stateStore, ratchetStore = lvl, lvl, lvl
		closer = lvl.Close
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, BackendFile, BackendLevelDB)
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	w := &Wire{
		Keys:  keysvc.New(keyStore, stateStore, log),
		Log:   log,
		HTTP:  httpClient,
		close: closer,
	}
	if cfg.RelayURL != "" {
		w.Relay = relay.NewHTTP(cfg.RelayURL, httpClient)
		w.Messages = messagesvc.New(w.Keys, ratchetStore, w.Relay, log)
	}
	log.Debug("wired", zap.String("home", cfg.Home), zap.String("backend", cfg.Backend), zap.Bool("relay", w.Relay != nil))
	return w, nil
}

// Close releases the storage backend.
func (w *Wire) Close() error { return w.close() }
