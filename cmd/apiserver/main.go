// API server entry point for autofragment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/autofragment/internal/app"
	"github.com/turtacn/autofragment/internal/config"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/autofragment/internal/interfaces/http"
	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/pkg/errors"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	upload := flag.Bool("upload", false, "store every decomposed batch in MinIO")
	maxMolecules := flag.Int("max-molecules", 0, "largest batch accepted per request, 0 for unlimited")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *upload, *maxMolecules); err != nil {
		logger.Error("api server stopped with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger, upload bool, maxMolecules int) error {
	logger.Info("starting autofragment API server",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.Int("port", cfg.Server.Port),
	)

	infra, err := app.New(cfg, logger, app.WithUpload(upload), app.WithMaxMolecules(maxMolecules))
	if err != nil {
		return err
	}
	defer infra.Close()

	routerCfg := httpserver.RouterConfig{
		FragmentHandler:  handlers.NewFragmentHandler(infra.Service),
		HealthHandler:    handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger:           logger,
		MetricsCollector: infra.Collector,
		Metrics:          infra.Metrics,
		MaxBodySize:      cfg.Server.MaxBodySize,
		Mode:             cfg.Server.Mode,
	}
	if infra.Results != nil {
		routerCfg.ResultHandler = handlers.NewResultHandler(infra.Results)
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "HTTP server failed")
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

// loadConfig reads path when given, otherwise searches the working
// directory and /etc/autofrag, falling back to defaults plus environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.Load(config.WithSearchPaths(".", "./configs", "/etc/autofrag"))
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return config.LoadFromEnv()
	}
	return cfg, err
}

//Personal.AI order the ending
