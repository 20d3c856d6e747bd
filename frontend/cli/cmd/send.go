package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quill-cli/quill/backend/chat"
)

// Stdin messages are capped so a runaway pipe cannot balloon the
// conversation file.
const maxStdinMessage = 32 << 10

type sendOptions struct {
	role         string
	name         string
	toolCallID   string
	systemFile   string
	noNetwork    bool
	writeReqResp bool
}

func NewSendCmd() *cobra.Command {
	options := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send <chat-id> [message]",
		Short: "Append a message to a conversation and submit it",
		Long: `Append a message to a conversation and submit it to the endpoint.

The chat id "new" starts a fresh conversation under a generated id.
A message of "-" is read from stdin, "@path" from a file, anything
else is taken literally.

Examples:
  # Start a conversation
  quill send new "What does this stack trace mean?"

  # Continue an existing one, piping the message in
  git diff | quill send 4f1c2d -

  # Record a message without calling the endpoint
  quill send 4f1c2d @notes.md --no-network`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID := args[0]
			generated := chatID == "new"
			if generated {
				chatID = uuid.NewString()
			}

			var message string
			if len(args) == 2 {
				content, err := readMessageSource(cmd.InOrStdin(), args[1])
				if err != nil {
					return err
				}
				message = content
			}
			if message == "" && options.systemFile == "" {
				return fmt.Errorf("nothing to send: provide a message or --system")
			}

			dirs, err := resolveDirs()
			if err != nil {
				return err
			}

			chatCtx, err := openChatContext(dirs, !options.noNetwork, options.writeReqResp)
			if err != nil {
				return err
			}
			if err := chatCtx.LoadOrNewChat(chatID); err != nil {
				return err
			}

			if options.systemFile != "" {
				prompt, err := chat.RenderPromptFile(options.systemFile)
				if err != nil {
					return err
				}
				if err := chatCtx.SetSystemPrompt(prompt); err != nil {
					return err
				}
			}

			if message != "" {
				if err := appendMessage(chatCtx, options, message); err != nil {
					return err
				}
			}

			dispatcher, closeTools, err := openDispatcher(dirs)
			if err != nil {
				return err
			}
			defer closeTools()
			if err := chatCtx.SetTools(dispatcher.Specs()); err != nil {
				return err
			}

			if generated {
				fmt.Fprintln(cmd.OutOrStdout(), chatID)
			}

			if !options.noNetwork {
				response, err := chatCtx.SubmitTurn()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), response.HumanReadable())
			}

			return chatCtx.Save()
		},
	}

	cmd.Flags().StringVar(&options.role, "role", "", `role of the appended message (default "user", or "tool" with --tool-call-id)`)
	cmd.Flags().StringVar(&options.name, "name", "", "function name on a tool response")
	cmd.Flags().StringVar(&options.toolCallID, "tool-call-id", "", "append the message as the response to this tool call")
	cmd.Flags().StringVar(&options.systemFile, "system", "", "render this template file and set it as the system prompt")
	cmd.Flags().BoolVar(&options.noNetwork, "no-network", false, "update the conversation without calling the endpoint")
	cmd.Flags().BoolVar(&options.writeReqResp, "write-req-resp", false, "dump the raw request and response to last_request.json / last_response.json")

	return cmd
}

func appendMessage(chatCtx *chat.Context, options *sendOptions, message string) error {
	if options.toolCallID != "" {
		role := options.role
		if role == "" {
			role = chat.RoleTool
		}
		if _, err := chatCtx.LookupToolCall(options.toolCallID); err != nil {
			return err
		}
		return chatCtx.AppendToolResponse(role, options.name, options.toolCallID, chat.Simple(message))
	}

	role := options.role
	if role == "" {
		role = chat.RoleUser
	}
	return chatCtx.AppendNormal(role, chat.Simple(message))
}

func readMessageSource(stdin io.Reader, arg string) (string, error) {
	switch {
	case arg == "-":
		content, err := io.ReadAll(io.LimitReader(stdin, maxStdinMessage+1))
		if err != nil {
			return "", err
		}
		if len(content) > maxStdinMessage {
			return "", fmt.Errorf("stdin message exceeds %d bytes", maxStdinMessage)
		}
		return string(content), nil
	case strings.HasPrefix(arg, "@"):
		content, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return "", err
		}
		return string(content), nil
	}

	return arg, nil
}
