package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a conversation in a human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := resolveDirs()
			if err != nil {
				return err
			}

			chatCtx, err := openChatContext(dirs, false, false)
			if err != nil {
				return err
			}
			if err := chatCtx.LoadChat(args[0]); err != nil {
				return err
			}

			loaded, err := chatCtx.Chat()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "model: %s\n", loaded.Model)
			for i := range loaded.Messages {
				fmt.Fprintln(cmd.OutOrStdout(), loaded.Messages[i].HumanReadable())
			}
			return nil
		},
	}

	return cmd
}
