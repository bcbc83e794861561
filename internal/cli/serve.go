package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/adapter/crypto"
	http2 "gitlab.com/testhub.net/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(st *state) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the execution engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				st.cfg.HTTPConfig.Port = port
			}
			return serve(cmd.Context(), st)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port, overrides HTTP_PORT")
	return cmd
}

func serve(parent context.Context, st *state) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := st.logger
	logger.Info("Starting test hub service", "env", st.cfg.Environment, "driver", st.cfg.DatabaseConfig.Driver)

	app, err := NewApp(ctx, st.cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	// Nothing of this process is running yet, so unfinished reports are leftovers.
	if st.cfg.ExecutionConfig.RecoverAbandoned {
		if _, err := app.executionService.FailAbandonedReports(ctx); err != nil {
			return err
		}
	}

	//primary ports
	jwtProvider := crypto.NewJWTService(st.cfg.JwtConfig)
	serviceProvider := http2.NewServiceProvider(
		app.moduleService,
		app.testCaseService,
		app.suiteService,
		app.executionService,
		app.store,
		jwtProvider,
		app.metrics,
	)

	//server
	httpServer := http2.NewServer(st.cfg.HTTPConfig, *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		return err
	}
	if err := startServing(ctx, httpServer, app.engine); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server did not drain in time", "error", err)
	}
	if err := app.engine.Stop(shutdownCtx); err != nil {
		logger.Warn("Execution engine did not drain in time", "error", err)
	}

	logger.Info("successfully shutdown server")
	return nil
}

type listener interface {
	Start(ctx context.Context) error
}

type workerPool interface {
	Start(ctx context.Context)
}

// startServing binds the listener first so that a failed bind leaves no
// workers behind. Runs submitted before the workers start wait in the queue.
func startServing(ctx context.Context, server listener, engine workerPool) error {
	if err := server.Start(ctx); err != nil {
		return err
	}
	engine.Start(context.WithoutCancel(ctx))
	return nil
}
