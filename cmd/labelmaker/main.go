package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/labelmaker/cmd/labelmaker/commands"
	"github.com/teranos/labelmaker/errors"
	"github.com/teranos/labelmaker/logger"
)

var rootCmd = &cobra.Command{
	Use:   "labelmaker",
	Short: "labelmaker - an atproto content-labeler service",
	Long: `labelmaker runs an atproto content-labeler: it signs and serves
moderation labels over the com.atproto.label.* and
tools.ozone.moderation.* XRPC methods.

Available commands:
  serve   - Run the labeler HTTP/WebSocket service
  genkey  - Generate a secp256k1 signing key for configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() != "genkey" {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			if err := logger.Initialize(false, verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a labelmaker.toml configuration file")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.GenKeyCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
