package commands

import (
	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

// sign <name>: sign a file or stdin.
func signCmd() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "sign <name>",
		Short: "Sign a message with a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			msg, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			sig, err := appCtx.Keys.Sign(cmd.Context(), passphrase, domain.KeyName(args[0]), msg)
			if err != nil {
				return err
			}
			return writeArmored(cmd, outPath, sig)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "-", "message file, - for stdin")
	cmd.Flags().StringVar(&outPath, "out", "-", "signature file, - for stdout")
	return cmd
}
