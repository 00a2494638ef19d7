package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cryptchat/chat"
	"cryptchat/content"
	"cryptchat/preview"
	"cryptchat/render"
)

var (
	messagesRefresh  bool
	messagesBefore   int64
	messagesPreviews bool
)

func init() {
	messagesCmd.Flags().BoolVarP(&messagesRefresh, "refresh", "r", false, "skip the cache and fetch from the API")
	messagesCmd.Flags().Int64Var(&messagesBefore, "before", 0, "fetch the page older than this unix millisecond timestamp")
	messagesCmd.Flags().BoolVar(&messagesPreviews, "previews", false, "fetch link previews for messages that are a single link")
	rootCmd.AddCommand(messagesCmd)
}

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Show decrypted messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}

		conversationID := args[0]
		conversations, err := a.pipeline.FetchConversations(cmd.Context(), false)
		if err != nil {
			return err
		}

		var metadata string
		for _, conversation := range conversations.Items {
			if conversation.ConversationID != conversationID {
				continue
			}
			if self, ok := conversation.Self(a.cfg.UserID); ok {
				metadata = self.Metadata
			}
		}
		if metadata == "" {
			return fmt.Errorf("conversation %q not found", conversationID)
		}

		result, err := a.pipeline.FetchMessages(cmd.Context(), chat.MessageQuery{
			ConversationID: conversationID,
			Metadata:       metadata,
			Before:         messagesBefore,
		}, messagesRefresh)
		if err != nil {
			return err
		}
		if result.CacheErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", result.CacheErr)
		}
		if err := chat.MarkFocused(cmd.Context(), a.backend, conversationID, time.Now().UnixMilli()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}

		var loader render.Loader
		if messagesPreviews {
			loader = preview.NewFetcher()
		}

		out := cmd.OutOrStdout()
		for _, message := range result.Items {
			fmt.Fprintf(out, "[%s] %s", formatMillis(message.TimestampSent), message.SenderName())
			if message.IsReply() && message.ReplyTo.Content != "" {
				fmt.Fprintf(out, " (re %s: %s)", message.ReplyTo.SenderName(),
					content.Join(content.Tokenize(message.ReplyTo.Content, content.Options{Mode: content.ModeInline})))
			}

			view := render.NewMessageView(render.Props{
				Text:          message.Content,
				EmbedDisabled: message.EmbedDisabled,
			}, loader)
			view.Wait()
			snap := view.Snapshot()
			view.Destroy()

			if snap.Display != content.DisplayNone {
				fmt.Fprintf(out, " <%s>", snap.Display)
			}
			fmt.Fprintf(out, "\n  %s\n", message.Content)
			if snap.PreviewState == render.PreviewReady {
				fmt.Fprintf(out, "  > %s: %s\n", snap.Preview.Title, snap.Preview.Description)
			}
		}
		fmt.Fprintf(out, "%d messages (cache=%v)\n", len(result.Items), result.FromCache)
		return nil
	},
}
