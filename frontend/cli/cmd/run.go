package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quill-cli/quill/backend/chat"
)

type runOptions struct {
	maxSteps     int
	writeReqResp bool
}

func NewRunCmd() *cobra.Command {
	options := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <chat-id>",
		Short: "Answer pending tool calls and submit the conversation",
		Long: `Answer pending tool calls and submit the conversation.

The oldest unanswered tool call is dispatched to the matching tool,
its result appended as a tool response, and the turn submitted. This
repeats while the assistant keeps requesting tools, up to --max-steps.
A dispatch failure is fed back to the assistant as the tool result
rather than aborting the loop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := resolveDirs()
			if err != nil {
				return err
			}

			chatCtx, err := openChatContext(dirs, true, options.writeReqResp)
			if err != nil {
				return err
			}
			if err := chatCtx.LoadChat(args[0]); err != nil {
				return err
			}

			dispatcher, closeTools, err := openDispatcher(dirs)
			if err != nil {
				return err
			}
			defer closeTools()
			if err := chatCtx.SetTools(dispatcher.Specs()); err != nil {
				return err
			}

			for step := 0; step < options.maxSteps; step++ {
				toolCallID, err := chatCtx.OldestPendingToolCallID()
				if err != nil {
					return err
				}
				if toolCallID == "" {
					if step == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "no pending tool calls")
					}
					break
				}

				toolCall, err := chatCtx.LookupToolCall(toolCallID)
				if err != nil {
					return err
				}

				slog.Info("dispatching tool call",
					"chat", args[0],
					"id", toolCallID,
					"function", toolCall.Function.Name,
				)

				result, err := dispatcher.Dispatch(cmd.Context(), toolCall.Function.Name, toolCall.Function.Arguments)
				if err != nil {
					slog.Warn("tool call failed", "id", toolCallID, "error", err)
					result = fmt.Sprintf("error: %s", err)
				}

				err = chatCtx.AppendToolResponse(chat.RoleTool, toolCall.Function.Name, toolCallID, chat.Simple(result))
				if err != nil {
					return err
				}

				response, err := chatCtx.SubmitTurn()
				if err != nil {
					// Keep the dispatched result even when the
					// submission fails.
					if saveErr := chatCtx.Save(); saveErr != nil {
						return saveErr
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), response.HumanReadable())
			}

			return chatCtx.Save()
		},
	}

	cmd.Flags().IntVar(&options.maxSteps, "max-steps", 8, "maximum number of tool-call rounds")
	cmd.Flags().BoolVar(&options.writeReqResp, "write-req-resp", false, "dump the raw request and response to last_request.json / last_response.json")

	return cmd
}
