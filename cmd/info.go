package cmd

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"cryptchat/crypto"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show client identity, keys and cache location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		x25519Key, err := crypto.LoadX25519PrivateKey(a.cfg.X25519PrivateKeyPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Client ID:       %s\n", a.cfg.ClientID)
		fmt.Fprintf(out, "User ID:         %d\n", a.cfg.UserID)
		fmt.Fprintf(out, "API:             %s\n", a.cfg.APIBaseURL)
		fmt.Fprintf(out, "Fingerprint:     %s\n", crypto.FormatFingerprint(a.fingerprint))
		fmt.Fprintf(out, "X25519 Public:   %s\n", base64.StdEncoding.EncodeToString(x25519Key.PublicKey().Bytes()))
		fmt.Fprintf(out, "Data Directory:  %s\n", a.dataDir)
		fmt.Fprintf(out, "Cache Backend:   %s\n", a.cfg.CacheBackend)
		fmt.Fprintf(out, "Cache Location:  %s\n", a.cacheAt)
		return nil
	},
}
