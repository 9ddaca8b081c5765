package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/m2tx/gemini_adapter/internal/adapter"
	"github.com/m2tx/gemini_adapter/internal/config"
	"github.com/m2tx/gemini_adapter/internal/logging"
	"github.com/m2tx/gemini_adapter/internal/repository"
	"github.com/m2tx/gemini_adapter/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "gemini-adapter",
		Usage: "Serves CopilotKit chat requests from Gemini",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a TOML configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (trace|debug|info|warn|error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.WithError(err).Error("gemini-adapter failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}

	logFile, err := logging.Setup(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer logFile.Close()

	threads, disconnect, err := openThreads(ctx, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer disconnect()

	a, err := adapter.New(ctx, adapter.Options{
		Model:   cfg.Gemini.Model,
		APIKey:  cfg.Gemini.APIKey,
		Threads: threads,
		Logger:  log.WithField("component", "adapter"),
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           server.NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": srv.Addr, "model": a.Model()}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("stopped gracefully")
	return nil
}

// openThreads picks MongoDB when a URI is configured and memory otherwise.
func openThreads(ctx context.Context, cfg config.MongoDB) (repository.ThreadRepository, func(), error) {
	if cfg.URI == "" {
		log.Info("no MongoDB URI configured, threads are kept in memory")
		return repository.NewMemoryThreadRepository(), func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb connect: %w", err)
	}

	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("mongodb disconnect")
		}
	}

	repo := repository.NewMongoThreadRepository(client.Database(cfg.Database), cfg.Collection)
	return repo, disconnect, nil
}
