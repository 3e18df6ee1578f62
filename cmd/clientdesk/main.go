// Package main implements the clientdesk server and its operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clientdesk.org/internal/config"
	"clientdesk.org/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "none"

	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clientdesk",
	Short: "Client and project tracking service",
	Long: `clientdesk serves the client/project API and carries the operator commands
that go with it: schema migrations and administrator provisioning.

Configuration comes from an optional YAML file and CLIENTDESK_* environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := obs.SetLevel(loaded.Log.Level); err != nil {
			return fmt.Errorf("log level %q: %w", loaded.Log.Level, err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CLIENTDESK_CONFIG"), "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
}
