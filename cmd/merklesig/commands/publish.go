package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

// publish <name>: upload a public key to the relay.
func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <name>",
		Short: "Publish a public key to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			name := domain.KeyName(args[0])
			pub, err := appCtx.Keys.PublicKey(name)
			if err != nil {
				return err
			}
			if err := appCtx.Relay.PublishKey(cmd.Context(), domain.PublishedKey{Name: name, PublicKey: pub}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s\n", name)
			return nil
		},
	}
}

// fetch <name>: download a public key and import it locally.
func fetchCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "Fetch a public key from the relay and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			published, err := appCtx.Relay.FetchKey(cmd.Context(), domain.KeyName(args[0]))
			if err != nil {
				return err
			}
			info, err := appCtx.Keys.ImportPublicKey(published.Name, published.PublicKey)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeArmored(cmd, outPath, published.PublicKey); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %s\nFingerprint: %s\n", info.Name, info.Fingerprint)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "also write the armored public key to this file")
	return cmd
}
