package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/ids"
	"clientdesk.org/internal/records"
	"clientdesk.org/internal/remote"
)

var smokeServer string

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run an end-to-end check against a running server",
	Long: `Register two throwaway accounts against a running server and verify that
records stay scoped to their owner.

Examples:
  clientdesk smoke --server http://localhost:8080`,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeServer, "server", "http://localhost:8080", "clientdesk server URL")
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, args []string) error {
	c, err := remote.New(smokeServer)
	if err != nil {
		return err
	}
	ctx, cancel := remote.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Ready(ctx); err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}

	run := ids.New()
	owner, err := smokeAccount(ctx, c, "owner-"+run)
	if err != nil {
		return err
	}
	other, err := smokeAccount(ctx, c, "other-"+run)
	if err != nil {
		return err
	}

	client, err := owner.CreateClient(ctx, records.NewClient{Name: "Smoke", Email: "client-" + run + "@smoke.test", ClientType: "smoke"})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	project, err := owner.CreateProject(ctx, records.NewProject{Name: "Smoke", ClientID: client.ID})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	if _, err := other.GetClient(ctx, client.ID); !errors.Is(err, records.ErrNotFound) {
		return fmt.Errorf("isolation check failed: foreign read returned %v", err)
	}
	if _, err := other.SetProjectStatus(ctx, project.ID, "closed"); !errors.Is(err, records.ErrNotFound) {
		return fmt.Errorf("isolation check failed: foreign write returned %v", err)
	}

	if _, err := owner.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if _, err := owner.DeleteClient(ctx, client.ID); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}

	cmd.Printf("smoke test passed: client=%s project=%s\n", client.ID, project.ID)
	return nil
}

func smokeAccount(ctx context.Context, c *remote.Client, name string) (*remote.Client, error) {
	email := name + "@smoke.test"
	password := "smoke-" + ids.New()
	if _, err := c.Register(ctx, auth.RegisterRequest{Name: name, Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	cred, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	return c.WithToken(cred.Token), nil
}
