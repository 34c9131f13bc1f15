package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

// verify: check a signature against a public key file or stored key.
func verifyCmd() *cobra.Command {
	var pubPath, keyName, sigPath, inPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signature; prints valid or invalid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pub []byte
				err error
			)
			switch {
			case pubPath != "":
				pub, err = readArmored(pubPath)
			case keyName != "":
				pub, err = appCtx.Keys.PublicKey(domain.KeyName(keyName))
			default:
				return errors.New("one of --pub or --key is required")
			}
			if err != nil {
				return err
			}
			sig, err := readArmored(sigPath)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			err = appCtx.Keys.Verify(pub, msg, sig)
			if errors.Is(err, domain.ErrVerificationFailed) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&pubPath, "pub", "", "armored public key file")
	cmd.Flags().StringVar(&keyName, "key", "", "name of a stored or fetched public key")
	cmd.Flags().StringVar(&sigPath, "sig", "", "armored signature file")
	cmd.Flags().StringVar(&inPath, "in", "-", "message file, - for stdin")
	_ = cmd.MarkFlagRequired("sig")
	return cmd
}
