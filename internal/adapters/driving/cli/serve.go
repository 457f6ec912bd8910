package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/recall/internal/adapters/driven/vault/filesystem"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/services"
)

// shutdownTimeout bounds how long the metrics server waits for open requests.
const shutdownTimeout = 5 * time.Second

var (
	serveMetricsAddr string
	serveSkipIndex   bool
	serveTick        time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background memory loop",
	Long: `Indexes the vault, then keeps running until interrupted:

  - documents are re-indexed when they change on disk (watch.enabled)
  - pending conversation turns are distilled every distill.interval
  - the heartbeat checklist is evaluated every heartbeat.interval

Scheduler state is kept in the database so a restart does not re-run
tasks early. Use --metrics-addr to expose Prometheus metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "serve /metrics on this address (e.g. :9090)")
	serveCmd.Flags().BoolVar(&serveSkipIndex, "skip-index", false, "do not re-index the vault on start")
	serveCmd.Flags().DurationVar(&serveTick, "tick", services.DefaultTickInterval, "how often due tasks are checked")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := currentApp()
	if err != nil {
		return err
	}
	log := a.Logger

	if !serveSkipIndex {
		stats, err := a.Index.IndexVault(cmd.Context())
		if err != nil {
			log.Warn("initial index failed", zap.Error(err))
		} else {
			log.Info("vault indexed",
				zap.Int("documents", stats.Documents),
				zap.Int("chunks", stats.Chunks),
				zap.Int("unchanged", stats.Unchanged),
				zap.Int("removed", stats.Removed))
		}
	}

	scheduler := services.NewScheduler(a.Schedules, log, serveTasks(a), services.WithTickInterval(serveTick))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if a.Config.Watch.Enabled && a.Vault != nil {
		watcher := filesystem.NewWatcher(a.Vault, a.Config.Watch.Debounce, reindexOnChange(a), log)
		g.Go(func() error { return watcher.Run(ctx) })
	}

	if serveMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              serveMetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: shutdownTimeout,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		log.Info("metrics available", zap.String("addr", serveMetricsAddr))
	}

	cmd.Printf("Serving vault %s (Ctrl+C to stop)\n", a.Config.VaultPath)
	return g.Wait()
}

// serveTasks returns the periodic tasks for a. Tasks that need the agent are
// left out when it is not configured.
func serveTasks(a *App) []services.Task {
	if !a.Config.Agent.IsConfigured() {
		a.Logger.Warn("agent not configured, distillation and heartbeats will not run")
		return nil
	}

	tasks := []services.Task{{
		ID:       domain.TaskIDDistill,
		Name:     "Distil conversations",
		Interval: a.Config.Distill.Interval,
		Run:      a.Distill.RunAll,
	}}
	if a.Config.Heartbeat.Enabled {
		tasks = append(tasks, services.Task{
			ID:       domain.TaskIDHeartbeat,
			Name:     "Heartbeat",
			Interval: a.Config.Heartbeat.Interval,
			Run: func(ctx context.Context) (int, error) {
				out, err := a.Heartbeat.Tick(ctx)
				if out.Status == domain.HeartbeatDelivered {
					return 1, err
				}
				return 0, err
			},
		})
	}
	return tasks
}

// reindexOnChange returns the watcher callback that keeps one document in step.
func reindexOnChange(a *App) filesystem.ChangeHandler {
	return func(ctx context.Context, path string) {
		n, err := a.Index.IndexDocument(ctx, path)
		if err != nil {
			a.Logger.Warn("re-index failed", zap.String("document", path), zap.Error(err))
			return
		}
		a.Logger.Debug("re-indexed", zap.String("document", path), zap.Int("chunks", n))
	}
}
