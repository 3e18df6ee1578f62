package main

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"clientdesk.org/internal/auth"
	"clientdesk.org/internal/config"
	"clientdesk.org/internal/migrate"
	"clientdesk.org/internal/records"
	"clientdesk.org/internal/store/pg"
	"clientdesk.org/internal/store/sqlite"
)

// backend bundles the stores selected by store.driver.
type backend struct {
	accounts auth.AccountStore
	records  records.Store
	ping     func(ctx context.Context) error
	close    func() error
}

func openBackend(ctx context.Context, c *config.Config, autoMigrate bool) (*backend, error) {
	switch c.Store.Driver {
	case config.DriverMemory:
		recs := records.NewMemoryStore()
		return &backend{
			accounts: auth.NewMemoryStore(),
			records:  recs,
			ping:     recs.Ping,
			close:    func() error { return nil },
		}, nil
	case config.DriverPostgres:
		store, err := pg.Open(c.Store.DSN, c.Store.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if autoMigrate {
			if _, err := migrate.NewManager(store.DB(), pg.Migrations()).Up(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return &backend{accounts: store, records: store, ping: store.Ping, close: store.Close}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, c.Store.DSN)
		if err != nil {
			return nil, err
		}
		return &backend{accounts: store, records: store, ping: store.Ping, close: store.Close}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}

func newAuthService(c *config.Config, accounts auth.AccountStore) (*auth.Service, error) {
	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret: []byte(c.Auth.Secret),
		Issuer: c.Auth.Issuer,
		TTL:    c.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	cost := c.Auth.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return auth.NewService(accounts, tokens, auth.WithBcryptCost(cost))
}
