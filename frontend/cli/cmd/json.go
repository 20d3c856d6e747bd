package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quill-cli/quill/backend/tool"
)

func NewJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "json",
		Short: "Edit JSON documents",
	}

	cmd.AddCommand(newJSONSetCmd())
	return cmd
}

func newJSONSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <file> <path> <value>",
		Short: "Set a value at a dotted path in a JSON file",
		Long: `Set a value at a dotted path in a JSON file, in place.

The value is used verbatim when it parses as JSON and treated as a
string otherwise.

Examples:
  quill json set config.json server.port 8080
  quill json set chat.json messages.0.content "You are terse."`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := tool.SetJSONFileValue(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), updated)
			return nil
		},
	}
}
