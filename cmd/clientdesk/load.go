package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clientdesk.org/internal/obs"
	"clientdesk.org/internal/records"
	"clientdesk.org/internal/remote"
)

var (
	loadServer   string
	loadWorkers  int
	loadDuration time.Duration
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Generate concurrent client/project traffic against a running server",
	Long: `Each worker registers its own account and then creates clients and projects,
moves project statuses and occasionally reuses a client email to provoke conflicts.

Examples:
  clientdesk load --server http://localhost:8080 --workers 8 --duration 1m`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadServer, "server", "http://localhost:8080", "clientdesk server URL")
	loadCmd.Flags().IntVar(&loadWorkers, "workers", 4, "concurrent worker count")
	loadCmd.Flags().DurationVar(&loadDuration, "duration", time.Minute, "duration of the run")
	rootCmd.AddCommand(loadCmd)
}

type loadStats struct {
	successes   atomic.Int64
	conflicts   atomic.Int64
	rateLimited atomic.Int64
	failures    atomic.Int64
}

func (s *loadStats) record(err error) {
	switch {
	case err == nil:
		s.successes.Add(1)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	case errors.Is(err, records.ErrConflict):
		s.conflicts.Add(1)
	case errors.Is(err, remote.ErrRateLimited):
		s.rateLimited.Add(1)
		time.Sleep(250 * time.Millisecond)
	default:
		s.failures.Add(1)
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadWorkers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	logger := obs.Logger()
	c, err := remote.New(loadServer)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, loadDuration)
	defer cancel()

	logger.Info("load started", zap.String("server", loadServer), zap.Int("workers", loadWorkers), zap.Duration("duration", loadDuration))

	var (
		stats loadStats
		wg    sync.WaitGroup
	)
	for i := 0; i < loadWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := loadWorker(ctx, c, id, &stats); err != nil && ctx.Err() == nil {
				logger.Warn("worker stopped", zap.Int("worker", id), zap.Error(err))
			}
		}(i)
	}
	wg.Wait()

	logger.Info("load complete",
		zap.Int64("successes", stats.successes.Load()),
		zap.Int64("conflicts", stats.conflicts.Load()),
		zap.Int64("rate_limited", stats.rateLimited.Load()),
		zap.Int64("failures", stats.failures.Load()),
	)
	if stats.failures.Load() > 0 {
		return fmt.Errorf("%d requests failed", stats.failures.Load())
	}
	return nil
}

func loadWorker(ctx context.Context, c *remote.Client, id int, stats *loadStats) error {
	me, err := smokeAccount(ctx, c, fmt.Sprintf("load-%d-%s", id, uuid.NewString()[:8]))
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*9973)))

	var clientIDs, projectIDs []string
	var lastEmail string
	for ctx.Err() == nil {
		switch n := rnd.Intn(10); {
		case n == 0 && lastEmail != "":
			// same email again: expected to conflict
			_, err := me.CreateClient(ctx, records.NewClient{Name: "dup", Email: lastEmail, ClientType: "load"})
			if err == nil {
				err = errors.New("duplicate client email accepted")
			} else if errors.Is(err, records.ErrConflict) {
				err = nil
			}
			stats.record(err)
		case n < 4 || len(clientIDs) == 0:
			lastEmail = uuid.NewString() + "@load.test"
			cl, err := me.CreateClient(ctx, records.NewClient{Name: "load client", Email: lastEmail, ClientType: "load"})
			stats.record(err)
			if err == nil {
				clientIDs = append(clientIDs, cl.ID)
			}
		case n < 7 || len(projectIDs) == 0:
			p, err := me.CreateProject(ctx, records.NewProject{
				Name:     "load project",
				ClientID: clientIDs[rnd.Intn(len(clientIDs))],
				Priority: string(records.Priorities[rnd.Intn(len(records.Priorities))]),
			})
			stats.record(err)
			if err == nil {
				projectIDs = append(projectIDs, p.ID)
			}
		default:
			status := records.Statuses[rnd.Intn(len(records.Statuses))]
			_, err := me.SetProjectStatus(ctx, projectIDs[rnd.Intn(len(projectIDs))], string(status))
			stats.record(err)
		}
		if ctx.Err() != nil {
			return nil
		}
		time.Sleep(time.Duration(20+rnd.Intn(80)) * time.Millisecond)
	}
	return nil
}
