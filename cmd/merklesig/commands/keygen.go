package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

// keygen <name>: generate and store a key pair.
func keygenCmd() *cobra.Command {
	var (
		leaves  int
		hash    string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "keygen <name>",
		Short: "Generate a key pair (-n 0 for a one-time key)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			name := domain.KeyName(args[0])
			info, err := appCtx.Keys.Generate(cmd.Context(), passphrase, name, leaves, hash)
			if err != nil {
				return err
			}
			if outPath != "" {
				pub, err := appCtx.Keys.PublicKey(name)
				if err != nil {
					return err
				}
				if err := writeArmored(cmd, outPath, pub); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key %s created (%s, %s, %d signatures).\nFingerprint: %s\n",
				info.Name, info.Scheme, info.Algorithm, info.LeafCount, info.Fingerprint)
			return nil
		},
	}
	cmd.Flags().IntVarP(&leaves, "leaves", "n", 16, "number of one-time leaves; 0 for a single one-time key")
	cmd.Flags().StringVar(&hash, "hash", "blake3", "hash function: blake3 or sha3-256")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the armored public key to this file")
	return cmd
}
