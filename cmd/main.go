package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	acceptor "github.com/qa-infra/scenario-acceptor"
	"github.com/qa-infra/scenario-acceptor/exitcodes"
	"github.com/qa-infra/scenario-acceptor/flags"
	"github.com/qa-infra/scenario-acceptor/runner"
	"github.com/qa-infra/scenario-acceptor/service"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "scenario-acceptor"
	app.Usage = "Scenario Acceptance Test Scheduler"
	app.Description = "scenario-acceptor schedules BDD scenarios across isolated workers, retries flaky failures and tracks stability over time"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		// RuntimeError and TestFailureError implement cli.ExitCoder
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitErr.ExitCode()))
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer otelShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	handler := log.NewTerminalHandlerWithLevel(os.Stdout, log.LevelInfo, true)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)

	cfg, err := acceptor.NewConfig(cliCtx, logger)
	if err != nil {
		return acceptor.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	executor, err := runner.NewCommandExecutor(cfg.ScenarioRunner, cfg.WorkDir, os.Environ())
	if err != nil {
		return acceptor.NewRuntimeError(fmt.Errorf("failed to create executor: %w", err))
	}

	app, err := acceptor.New(cfg, Version, executor.Execute)
	if err != nil {
		return acceptor.NewRuntimeError(fmt.Errorf("failed to create acceptor: %w", err))
	}

	// Healthz and metrics servers
	svc := service.New(service.Config{
		Version: Version,
		Log:     logger,
		RunStatus: func() (string, bool) {
			if result := app.Result(); result != nil {
				return result.Status.String(), true
			}
			return "", false
		},
	})
	svc.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(shutdownCtx)
	}()

	if err := app.Start(cliCtx.Context); err != nil {
		return err
	}
	if cfg.RunOnce {
		return nil
	}

	// Continuous mode: run until interrupted
	<-cliCtx.Context.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return app.Stop(stopCtx)
}
