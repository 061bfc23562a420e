package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	httpserver "github.com/NikolozR/suliko-client/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session-tracking HTTP facade",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		slog.SetDefault(logger)

		srv, err := httpserver.NewServer(cfg, logger)
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		logger.Info("listening", "port", cfg.Port)
		return srv.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
