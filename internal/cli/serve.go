package cli

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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tokenshelf/internal/notify"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics, change events and the collection over HTTP",
		Long: `Serve exposes:

  /metrics         Prometheus metrics
  /ws              websocket stream of tokensChanged events
  /customizations  the collection as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.settings.Serve.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := a.newLogger()
			if err != nil {
				return err
			}
			hub := notify.NewHub(logger, a.settings.Serve.AllowedOrigins...)
			defer hub.Close()

			s, err := a.open(ctx, hub)
			if err != nil {
				return err
			}
			defer s.Close()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError("listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", ln.Addr())

			srv := &http.Server{
				Handler:           newServeMux(s, hub),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(ctx, srv, ln, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: serve.addr from config)")
	return cmd
}

func newServeMux(s *session, hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", hub)
	mux.HandleFunc("GET /customizations", func(w http.ResponseWriter, r *http.Request) {
		all := s.store.All()
		views := make([]view, 0, len(all))
		for _, c := range all {
			views = append(views, s.view(c))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := printJSON(w, views); err != nil {
			s.logger.Warn("writing customizations", zap.Error(err))
		}
	})
	return mux
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *zap.Logger) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return sysError("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sysError("shutdown: %w", err)
	}
	return nil
}
