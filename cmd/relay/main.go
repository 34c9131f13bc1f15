package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"merklesig/internal/app"
	"merklesig/internal/relay"
)

var (
	listen  string
	dataDir string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Public key directory and message relay for merklesig",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.NewLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if !verbose {
				gin.SetMode(gin.ReleaseMode)
			}

			box, err := relay.OpenMailbox(dataDir)
			if err != nil {
				return err
			}
			defer box.Close()

			log.Info("relay listening", zap.String("addr", listen), zap.String("data", dataDir))
			return relay.NewServer(box, log).Run(cmd.Context(), listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "address to listen on")
	cmd.Flags().StringVar(&dataDir, "data", "", "leveldb directory (empty keeps everything in memory)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}
