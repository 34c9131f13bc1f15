package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

// info [name]: show one key, or list all stored keys.
func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [name]",
		Short: "Show key fingerprint and remaining signatures",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				info, err := appCtx.Keys.Info(domain.KeyName(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Name:        %s\n", info.Name)
				fmt.Fprintf(out, "Scheme:      %s\n", info.Scheme)
				fmt.Fprintf(out, "Hash:        %s\n", info.Algorithm)
				fmt.Fprintf(out, "Fingerprint: %s\n", info.Fingerprint)
				fmt.Fprintf(out, "Leaves:      %d\n", info.LeafCount)
				fmt.Fprintf(out, "Used:        %d\n", info.NextIndex)
				fmt.Fprintf(out, "Remaining:   %d\n", info.Remaining)
				return nil
			}
			names, err := appCtx.Keys.ListKeys()
			if err != nil {
				return err
			}
			for _, n := range names {
				info, err := appCtx.Keys.Info(n)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-16s %-9s %s  %d/%d remaining\n",
					info.Name, info.Scheme, info.Fingerprint, info.Remaining, info.LeafCount)
			}
			return nil
		},
	}
}
