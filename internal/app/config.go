package app

import (
	"net/http"

	"merklesig/internal/store"
)

// Storage backends selectable with Config.Backend.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string       // data directory, e.g. $HOME/.merklesig
	RelayURL string       // relay base URL, e.g. http://127.0.0.1:8080; empty disables the relay
	Backend  string       // BackendFile (default) or BackendLevelDB
	Verbose  bool         // debug logging to stderr
	HTTP     *http.Client // optional; defaults to http.DefaultClient

	// StoreOptions are passed to every store, e.g. store.WithKDF in tests.
	StoreOptions []store.Option
}
