package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NikolozR/suliko-client/internal/config"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "suliko",
	Short: "Track Suliko document translation jobs from submission to result",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if configPath != "" {
			if err := loaded.ApplyFile(configPath); err != nil {
				return err
			}
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an optional YAML config file")
}
