package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/labelmaker/config"
	"github.com/teranos/labelmaker/logger"
	"github.com/teranos/labelmaker/server"
)

// ServeCmd runs the labeler's HTTP/WebSocket service shell until
// interrupted.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the labeler HTTP/WebSocket service",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")
		did, _ := cmd.Flags().GetString("did")
		signingKey, _ := cmd.Flags().GetString("signing-key")
		storePath, _ := cmd.Flags().GetString("store-path")

		cfg, err := config.Load(configPath, config.Config{
			Addr:       addr,
			DID:        did,
			SigningKey: signingKey,
			StorePath:  storePath,
		})
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Addr:       cfg.Addr,
			DID:        cfg.DID,
			SigningKey: cfg.SigningKey,
			StorePath:  cfg.StorePath,
		})
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := srv.Run(ctx); err != nil {
			logger.Errorw("labeler exited with error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	ServeCmd.Flags().String("addr", "", "listen address, e.g. :8443")
	ServeCmd.Flags().String("did", "", "the labeler's own DID")
	ServeCmd.Flags().String("signing-key", "", "32-byte secp256k1 signing key, hex or base64")
	ServeCmd.Flags().String("store-path", "", "path to the SQLite label store")
}
