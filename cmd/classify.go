package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cryptchat/content"
)

var (
	tokenizeInline bool
	tokenizeDark   bool
	tokenizeCustom []string
)

func init() {
	tokenizeCmd.Flags().BoolVar(&tokenizeInline, "inline", false, "tokenize as a single-line preview")
	tokenizeCmd.Flags().BoolVar(&tokenizeDark, "dark", false, "use dark mode emoji")
	tokenizeCmd.Flags().StringSliceVar(&tokenizeCustom, "custom-emoji", nil, "custom emoji ids")
	rootCmd.AddCommand(classifyCmd, tokenizeCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>",
	Short: "Print the display type of a message",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), content.Classify(strings.Join(args, " ")))
	},
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <text>",
	Short: "Print the render tokens of a message",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := content.Options{
			CustomEmoji: content.NewEmojiSet(tokenizeCustom...),
			DarkMode:    tokenizeDark,
		}
		if tokenizeInline {
			opts.Mode = content.ModeInline
		}

		out := cmd.OutOrStdout()
		for _, tok := range content.Tokenize(strings.Join(args, " "), opts) {
			switch tok.Kind {
			case content.TokenEmoji:
				fmt.Fprintf(out, "%-9s %q id=%s custom=%v size=%d\n", tok.Kind, tok.Raw, tok.Emoji.ID, tok.Emoji.Custom, tok.Emoji.Size)
			case content.TokenLineBreak:
				fmt.Fprintf(out, "%-9s\n", tok.Kind)
			default:
				fmt.Fprintf(out, "%-9s %q\n", tok.Kind, tok.Text)
			}
		}
	},
}
