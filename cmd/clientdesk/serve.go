package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"clientdesk.org/internal/httpapi"
	"clientdesk.org/internal/obs"
	"clientdesk.org/internal/records"
	"clientdesk.org/internal/stream"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health endpoint",
	Long: `Run the HTTP API and, when server.grpc_addr is set, the grpc.health.v1 endpoint.

Examples:
  # In-memory store, handy for local development
  CLIENTDESK_AUTH_SECRET=dev-secret-0123456789 clientdesk serve

  # PostgreSQL with schema migrations applied on start
  clientdesk serve -c clientdesk.yaml --auto-migrate`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending PostgreSQL migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := obs.Logger()
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, autoMigrate)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}()

	authSvc, err := newAuthService(cfg, be.accounts)
	if err != nil {
		return err
	}
	hub := stream.New()
	recs := records.NewService(be.records, records.WithPublisher(hub))
	probe := httpapi.ReadyProbe{Ping: be.ping}

	api := httpapi.New(probe, authSvc, recs, hub, httpapi.Options{
		Version:      version,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateBurst:    cfg.Server.RateBurst,
		RatePerSec:   cfg.Server.RatePerSec,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		// event streams end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	var (
		grpcSrv *grpc.Server
		grpcLis net.Listener
	)
	if cfg.Server.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http listen: %w", err)
		}
	}()

	health := httpapi.NewGRPCHealth(probe)
	go health.Watch(ctx, 10*time.Second)
	if grpcLis != nil {
		grpcSrv = grpc.NewServer()
		health.Register(grpcSrv)
		go func() {
			logger.Info("grpc listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	logger.Info("stopped")
	return err
}
