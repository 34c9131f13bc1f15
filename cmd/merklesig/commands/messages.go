package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"merklesig/internal/domain"
)

var username string

// send <peer> <message>: sign and send a message to <peer>.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Sign and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			peer := domain.Username(args[0])
			if err := appCtx.Messages.SendMessage(cmd.Context(), passphrase, domain.Username(username), peer, []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username; your published key of the same name signs new chains")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// recv: fetch and verify queued messages for --username.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and verify your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			msgs, err := appCtx.Messages.ReceiveMessages(cmd.Context(), passphrase, domain.Username(username), limit)
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s #%d] %s\n", m.From, m.Seq, string(m.Message))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages to fetch (0 for all)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
