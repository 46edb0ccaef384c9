package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

const shutdownTimeout = 10 * time.Second

// sweepJSON is the /stats view of a sweep report.
type sweepJSON struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Deleted    int64             `json:"deleted"`
	Failures   map[string]string `json:"failures,omitempty"`
}

type statsJSON struct {
	Path      string          `json:"path"`
	State     string          `json:"state"`
	Storage   db.StorageStats `json:"storage"`
	LastSweep *sweepJSON      `json:"last_sweep,omitempty"`
}

func newDaemonCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Keep the store open, sweep expired records and serve health and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.Daemon.Addr
			}
			log := app.logger().Named("daemon")
			app.onSweep = func(r db.SweepReport) {
				fields := []zap.Field{zap.Int64("deleted", r.Deleted()), zap.Duration("took", r.FinishedAt.Sub(r.StartedAt))}
				if err := r.Err(); err != nil {
					log.Warn("sweep finished with failures", append(fields, zap.Error(err))...)
					return
				}
				log.Info("sweep finished", fields...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := app.open(ctx, true)
			if err != nil {
				return err
			}
			if err := store.StartExpiryCleanup(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newDaemonRouter(store, app.Registry, log),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "hera daemon on http://%s (Ctrl+C to stop)\n", addr)

			select {
			case <-ctx.Done():
				log.Info("shutting down")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down http server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from daemon.addr)")
	return cmd
}

// newDaemonRouter serves /healthz, /stats and /metrics for store.
func newDaemonRouter(store *db.Store, reg *prometheus.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if store.State() != db.StateReady {
			http.Error(w, store.State().String(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.StorageStats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		body := statsJSON{Path: store.Path(), State: store.State().String(), Storage: stats}
		if rep, ok := store.LastSweep(); ok {
			sj := &sweepJSON{StartedAt: rep.StartedAt, FinishedAt: rep.FinishedAt, Deleted: rep.Deleted()}
			for _, f := range rep.Failed() {
				if sj.Failures == nil {
					sj.Failures = map[string]string{}
				}
				sj.Failures[f.Store] = f.Err.Error()
			}
			body.LastSweep = sj
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Warn("encoding stats", zap.Error(err))
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
