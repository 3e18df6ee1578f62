package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator account management",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Create an administrator account in the configured store.

Administrators can list every account via GET /v1/admin/accounts. They cannot be
created through self-service registration.

Examples:
  clientdesk admin create --email root@example.com --name Root --password 'change-me-now'`,
	RunE: runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email (required)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "initial password (required)")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	be, err := openBackend(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer be.close()

	svc, err := newAuthService(cfg, be.accounts)
	if err != nil {
		return err
	}
	acc, err := svc.CreateAdmin(ctx, adminEmail, adminName, adminPassword)
	if err != nil {
		return err
	}
	cmd.Printf("created admin %s (%s)\n", acc.Email, acc.ID)
	return nil
}
