// Command server is the runbook-engine process entrypoint: a thin
// cobra CLI wrapping internal/engine's lifecycle and the two wire
// surfaces (spec §4.8). Grounded on the teacher's cobra usage in
// internal/infrastructure/migrations/cli.go (root command +
// AddCommand of narrow RunE subcommands) and the teacher's original
// cmd/server/main.go signal-handling shape (signal.Notify on
// SIGINT/SIGTERM, a bounded context.WithTimeout shutdown).
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

	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/config"
	"github.com/relentless-ops/runbook-engine/internal/engine"
	"github.com/relentless-ops/runbook-engine/internal/wire/dispatch"
	wirehttp "github.com/relentless-ops/runbook-engine/internal/wire/http"
	"github.com/relentless-ops/runbook-engine/internal/wire/rpc"
)

func dispatcherFor(e *engine.Engine) *dispatch.Dispatcher {
	return dispatch.New(e.API)
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "runbook-engine",
		Short: "Intelligent runbook and procedure retrieval engine",
		Long:  "runbook-engine indexes incident-response runbooks and procedures across pluggable documentation sources and serves them as a closed set of tool-call operations over HTTP and RPC.",
	}

	root.AddCommand(serveCommand(), validateConfigCommand())
	return root
}

func serveCommand() *cobra.Command {
	var configPath string
	var rpcMode bool
	var seedDemo bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine and serve tool-call operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, rpcMode, seedDemo)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration YAML file (unset runs on built-in defaults)")
	cmd.Flags().BoolVar(&rpcMode, "rpc", false, "serve the newline-delimited-JSON RPC surface over stdin/stdout instead of HTTP")
	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "seed every memorydoc source with a small built-in fixture set instead of requiring real content")

	return cmd
}

func validateConfigCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration file without starting the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid: %d source(s) configured\n", len(cfg.Sources))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration YAML file")
	return cmd
}

func serve(ctx context.Context, configPath string, rpcMode, seedDemo bool) error {
	e, err := engine.New(configPath)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if seedDemo {
		if err := e.RegisterAdapterFactory("memorydoc", memorydoc.Factory(demoFixtures(), memorydoc.FaultConfig{})); err != nil {
			return fmt.Errorf("seed demo fixtures: %w", err)
		}
	}

	startCtx, cancelStart := context.WithCancel(ctx)
	defer cancelStart()
	if err := e.Start(startCtx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	if rpcMode {
		return serveRPC(e, quit)
	}
	return serveHTTP(e, quit)
}

func serveRPC(e *engine.Engine, quit chan os.Signal) error {
	server := rpc.NewServer(dispatcherFor(e), e.Logger())

	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		done <- server.Serve(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-quit:
		e.Logger().Info("shutdown signal received")
	case err := <-done:
		cancel()
		shutdown(e)
		return err
	}
	cancel()
	return shutdown(e)
}

func serveHTTP(e *engine.Engine, quit chan os.Signal) error {
	cfg := e.Config().Server
	router := wirehttp.NewRouter(dispatcherFor(e), e.Health(), e, e.Metrics(), e.Logger())

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		e.Logger().Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-quit:
		e.Logger().Info("shutdown signal received")
	case err := <-serveErr:
		shutdown(e)
		return err
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := shutdown(e); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func shutdown(e *engine.Engine) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("engine shutdown: %w", err)
	}
	return nil
}
