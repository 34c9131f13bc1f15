package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"merklesig/internal/app"
	"merklesig/internal/store"
)

func TestNewWire_Backends(t *testing.T) {
	for _, backend := range []string{"", app.BackendFile, app.BackendLevelDB} {
		t.Run("backend="+backend, func(t *testing.T) {
			cfg := app.Config{
				Home:         t.TempDir(),
				Backend:      backend,
				StoreOptions: []store.Option{store.WithKDF(store.KDFParams{N: 1 << 10, R: 8, P: 1})},
			}
			w, err := app.NewWire(cfg, nil)
			require.NoError(t, err)
			defer func() { require.NoError(t, w.Close()) }()
			require.Nil(t, w.Relay)
			require.Nil(t, w.Messages)

			ctx := context.Background()
			_, err = w.Keys.Generate(ctx, "Correct-Horse-9!", "k", 2, "blake3")
			require.NoError(t, err)
			_, err = w.Keys.Sign(ctx, "Correct-Horse-9!", "k", []byte("m"))
			require.NoError(t, err)
			info, err := w.Keys.Info("k")
			require.NoError(t, err)
			require.EqualValues(t, 1, info.Remaining)
		})
	}
}

func TestNewWire_RelayAndUnknownBackend(t *testing.T) {
	w, err := app.NewWire(app.Config{Home: t.TempDir(), RelayURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, w.Relay)
	require.NotNil(t, w.Messages)

	_, err = app.NewWire(app.Config{Home: t.TempDir(), Backend: "sqlite"}, nil)
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	quiet, err := app.NewLogger(false)
	require.NoError(t, err)
	require.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	require.True(t, quiet.Core().Enabled(zapcore.WarnLevel))

	loud, err := app.NewLogger(true)
	require.NoError(t, err)
	require.True(t, loud.Core().Enabled(zapcore.DebugLevel))
}
