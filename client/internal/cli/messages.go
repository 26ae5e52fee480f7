package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pohaoc29/GroceryShopperAI/client/internal/app"
	"github.com/pohaoc29/GroceryShopperAI/client/internal/ui"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print recent messages of the global feed or --room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msgs, err := rt.api.FetchHistory(cmd.Context())
			if err != nil {
				return err
			}
			p := ui.NewPrinter(cmd.OutOrStdout())
			for _, m := range msgs {
				p.Deliver(m)
			}
			return nil
		},
	}
}

func newSendCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "send TEXT...",
		Short: "Post a message to the global feed or --room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.session.HasCredential() {
				return app.ErrNotAuthenticated
			}
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("cli: message is empty")
			}
			ack, err := rt.api.SendMessage(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent #%d\n", ack.ID)
			return nil
		},
	}
}
