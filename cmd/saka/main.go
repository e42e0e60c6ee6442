package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/homemade/saka/cloudbuild"
	"github.com/homemade/saka/internal/config"
	"github.com/homemade/saka/internal/logging"
	"github.com/homemade/saka/internal/metrics"
	"github.com/homemade/saka/internal/scheduler"
	"github.com/homemade/saka/internal/server"
	"github.com/homemade/saka/keywords"
	"github.com/homemade/saka/provision"
)

func main() {
	app := &cli.App{
		Name:     "saka",
		Usage:    "SA360 Keyword Automator",
		Commands: commands(),
	}
	if err := app.Run(os.Args); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("saka failed", "error", err)
		os.Exit(1)
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:        "run",
			Usage:       "Extract search terms from Google Ads and upload qualifying keywords to SA360 once",
			UsageText:   "saka run [--record]",
			Description: "Run settings are read from the environment and the optional override file named by " + keywords.EnvSettingsFile + ".",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "record",
					Usage: "Write Google Ads requests and responses, credentials included, under testdata/.requests",
				},
			},
			Action: runCmd,
		},
		{
			Name:      "serve",
			Usage:     "Serve the HTTP and Pub/Sub push triggers",
			UsageText: "saka serve [--schedule]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "schedule",
					Usage: "Also run on the SAKA_SCHEDULE cron expression",
				},
			},
			Action: serveCmd,
		},
		{
			Name:        "schedule",
			Usage:       "Run on the SAKA_SCHEDULE cron expression until interrupted",
			UsageText:   "saka schedule",
			Description: "A local alternative to Cloud Scheduler. SAKA_SCHEDULE_TIMEZONE sets the time zone, UTC by default.",
			Action:      scheduleCmd,
		},
		{
			Name:        "install",
			Usage:       "Provision the Google Cloud resources and the deploy trigger",
			UsageText:   "saka install [--env-file .env] [--dry-run] [--strict]",
			Description: "Each step checks for existing resources first, so install may be re-run after a failure.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "env-file",
					Aliases: []string{"e"},
					Value:   ".env",
					Usage:   "Environment file with the installer settings",
				},
				&cli.BoolFlag{
					Name:  "dry-run",
					Usage: "Print the gcloud commands instead of running them",
				},
				&cli.BoolFlag{
					Name:  "strict",
					Usage: "Stop at the first failed step",
				},
			},
			Action: installCmd,
		},
		{
			Name:      "cloudbuild",
			Usage:     "Write the Cloud Build descriptor that tests and deploys the function",
			UsageText: "saka cloudbuild [--output cloudbuild.yaml]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   "cloudbuild.yaml",
					Usage:   "Destination file, - for stdout",
				},
			},
			Action: cloudbuildCmd,
		},
	}
}

func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}

func runCmd(ctx *cli.Context) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}
	pipeline := keywords.NewPipeline(logger)
	pipeline.RecordRequests = ctx.Bool("record")
	message, err := pipeline.ExtractAndUploadKeywords(ctx.Context, keywords.Trigger{Type: "cli"})
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

func serveCmd(ctx *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	collector, err := metrics.NewCollector()
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	pipeline := keywords.NewPipeline(logger)
	pipeline.Recorder = collector
	runner := &server.SerialRunner{Runner: pipeline}

	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()

	if ctx.Bool("schedule") {
		s, err := scheduler.New(runCtx, cfg.Schedule, runner, logger)
		if err != nil {
			return err
		}
		s.Start()
		defer s.Stop()
	}

	srv := server.New(cfg.Server, logger, server.NewRouter(runner, collector, logger))
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return err
	case sig := <-waitForSignal():
		logger.Info("received signal", "signal", sig.String())
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	cancel()
	logger.Info("shutdown complete")
	return nil
}

func scheduleCmd(ctx *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()

	s, err := scheduler.New(runCtx, cfg.Schedule, keywords.NewPipeline(logger), logger)
	if err != nil {
		return err
	}
	s.Start()
	sig := <-waitForSignal()
	logger.Info("received signal", "signal", sig.String())
	s.Stop()
	return nil
}

func waitForSignal() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	return c
}

func installCmd(ctx *cli.Context) error {
	_, logger, err := setup()
	if err != nil {
		return err
	}
	settings, err := provision.LoadSettings(ctx.String("env-file"))
	if err != nil {
		return err
	}

	var runner provision.Runner = provision.ExecRunner{Stderr: os.Stderr}
	if ctx.Bool("dry-run") {
		runner = provision.DryRunRunner{Out: os.Stdout}
		settings.StepDelay = 0
	}
	installer := provision.NewInstaller(settings, runner, logger)
	installer.Strict = ctx.Bool("strict")
	return installer.Install(ctx.Context)
}

func cloudbuildCmd(ctx *cli.Context) error {
	data, err := cloudbuild.NewBuild().Render()
	if err != nil {
		return err
	}
	output := ctx.String("output")
	if output == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %w", output, err)
	}
	fmt.Printf("wrote %s\n", output)
	return nil
}
