package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"cryptchat/chat"
)

var pruneOlderThan time.Duration

// agePruner is implemented by backends that record when each entry was written.
type agePruner interface {
	PruneOlderThan(ctx context.Context, namespace string, cutoffTimestamp int64) (int64, error)
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "drop cache entries not written within this duration instead of refreshing")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Refresh conversations and drop caches of conversations that no longer exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan < 0 {
			return errors.New("--older-than must not be negative")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if pruneOlderThan > 0 {
			return pruneByAge(cmd, a, pruneOlderThan)
		}
		if err := a.requireUser(); err != nil {
			return err
		}

		result, err := a.pipeline.FetchConversations(cmd.Context(), true)
		if err != nil {
			return err
		}
		a.pipeline.Wait()

		fmt.Fprintf(cmd.OutOrStdout(), "pruned caches against %d conversations\n", len(result.Items))
		return nil
	},
}

func pruneByAge(cmd *cobra.Command, a *app, age time.Duration) error {
	pruner, ok := a.backend.(agePruner)
	if !ok {
		return fmt.Errorf("cache backend %q does not record entry age", a.cfg.CacheBackend)
	}

	cutoff := time.Now().Add(-age).UnixMilli()
	removed, err := pruner.PruneOlderThan(cmd.Context(), chat.CacheNamespace, cutoff)
	if err != nil {
		return err
	}
	log.Printf("prune: removed=%d older_than=%s", removed, age)

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache entries older than %s\n", removed, age)
	return nil
}
