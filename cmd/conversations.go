package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cryptchat/chat"
	"cryptchat/content"
	"cryptchat/models"
)

var (
	conversationsRefresh bool
	conversationsFilter  string
)

func init() {
	conversationsCmd.Flags().BoolVarP(&conversationsRefresh, "refresh", "r", false, "skip the cache and fetch from the API")
	conversationsCmd.Flags().StringVarP(&conversationsFilter, "filter", "f", "", "only show conversations matching this text")
	rootCmd.AddCommand(conversationsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List decrypted conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}

		result, err := a.pipeline.FetchConversations(cmd.Context(), conversationsRefresh)
		if err != nil {
			return err
		}
		if result.CacheErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", result.CacheErr)
		}

		conversations := chat.FilterConversations(result.Items, conversationsFilter)
		chat.SortConversations(conversations)

		out := cmd.OutOrStdout()
		for _, conversation := range conversations {
			fmt.Fprintf(out, "%s  %-24s  %s  %s\n",
				conversation.ConversationID,
				conversationTitle(conversation, a.cfg.UserID),
				formatMillis(conversation.LastMessageTimestamp),
				content.Join(content.Tokenize(conversation.LastMessage, content.Options{Mode: content.ModeInline})),
			)
		}
		fmt.Fprintf(out, "%d conversations (cache=%v)\n", len(conversations), result.FromCache)
		return nil
	},
}

func conversationTitle(conversation models.Conversation, userID int64) string {
	if conversation.Name != "" {
		return conversation.Name
	}
	names := make([]string, 0, len(conversation.Participants))
	for _, participant := range conversation.Others(userID) {
		names = append(names, participant.DisplayName())
	}
	if len(names) == 0 {
		return "(just you)"
	}
	return strings.Join(names, ", ")
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
