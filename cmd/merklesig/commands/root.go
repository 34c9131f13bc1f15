package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"merklesig/internal/app"
	"merklesig/internal/store"
)

// passphraseEnv is read when -p is not given.
const passphraseEnv = "MERKLESIG_PASSPHRASE"

var (
	home       string
	passphrase string
	backend    string
	relayURL   string
	verbose    bool

	// storeOptions lets tests lower the KDF cost.
	storeOptions []store.Option

	appCtx *app.Wire
)

var errNoPassphrase = errors.New("passphrase required (-p or " + passphraseEnv + ")")
var errNoRelay = errors.New("no relay configured. use --relay")

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return execute(ctx, NewRootCmd())
}

// execute runs root and releases whatever PersistentPreRunE opened, on the
// error paths too: cobra skips post-run hooks when RunE fails.
func execute(ctx context.Context, root *cobra.Command) (err error) {
	appCtx = nil
	defer func() {
		if cerr := closeApp(); err == nil {
			err = cerr
		}
	}()
	return root.ExecuteContext(ctx)
}

func closeApp() error {
	if appCtx == nil {
		return nil
	}
	_ = appCtx.Log.Sync()
	return appCtx.Close()
}

// NewRootCmd builds the command tree. Flags are bound afresh on every call.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "merklesig",
		Short:        "Hash-based one-time and multi-use signatures",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".merklesig")
			}
			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}
			log, err := app.NewLogger(verbose)
			if err != nil {
				return err
			}
			appCtx, err = app.NewWire(app.Config{
				Home:         home,
				RelayURL:     relayURL,
				Backend:      backend,
				Verbose:      verbose,
				StoreOptions: storeOptions,
			}, log)
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.merklesig)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting private keys (or "+passphraseEnv+")")
	root.PersistentFlags().StringVar(&backend, "backend", app.BackendFile, "storage backend: file or leveldb")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		keygenCmd(),
		signCmd(),
		verifyCmd(),
		infoCmd(),
		publishCmd(),
		fetchCmd(),
		sendCmd(),
		recvCmd(),
	)
	return root
}

func requirePassphrase() error {
	if passphrase == "" {
		return errNoPassphrase
	}
	return nil
}

func requireRelay() error {
	if appCtx.Relay == nil {
		return errNoRelay
	}
	return nil
}
