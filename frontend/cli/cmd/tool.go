package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewToolCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "tool <name> [arguments]",
		Short: "Invoke a tool directly",
		Long: `Invoke a tool directly with JSON arguments, bypassing the model.

Examples:
  quill tool list_files '{"directory":"."}'
  quill tool execute '{"command":"uname -a"}'
  quill tool --list`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := resolveDirs()
			if err != nil {
				return err
			}

			dispatcher, closeTools, err := openDispatcher(dirs)
			if err != nil {
				return err
			}
			defer closeTools()

			if list {
				for _, spec := range dispatcher.Specs() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", spec.Function.Name, spec.Function.Description)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("a tool name is required (or --list)")
			}
			arguments := "{}"
			if len(args) == 2 {
				arguments = args[1]
			}

			result, err := dispatcher.Dispatch(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the available tools")

	return cmd
}
