package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"github.com/spigell/interview-agent/internal/ai"
	"github.com/spigell/interview-agent/internal/ai/gemini"
	"github.com/spigell/interview-agent/internal/interview"
	"github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/report"
	"github.com/spigell/interview-agent/internal/secrets"
	"github.com/spigell/interview-agent/internal/store"
	"go.uber.org/zap"
)

// application holds everything a command needs to drive interviews.
type application struct {
	config  *Config
	logger  *zap.Logger
	store   store.Store
	gateway *ai.Gateway
	engine  *interview.Engine
}

// bootstrap reads the config and builds the logger. Failures here are fatal.
func bootstrap() (*Config, *zap.Logger) {
	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), config.Log.File)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return config, logger
}

func newApplication(ctx context.Context, config *Config, log *zap.Logger) (*application, error) {
	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, err
	}

	gateway := ai.NewGateway(generator, ai.Config{
		Models:       config.AI.Gemini.Models,
		MaxRetries:   config.AI.Gemini.MaxRetries,
		BaseDelay:    config.AI.Gemini.BaseDelay,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}, log.Named("gateway"))

	st, err := store.Open(ctx, config.Store.Driver, config.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", config.Store.Driver, err)
	}

	compiler := report.NewCompiler(gateway, log.Named("report"))
	engine := interview.New(st, gateway, compiler, log.Named("interview"))

	log.Info("application is ready",
		zap.String("store", config.Store.Driver),
		zap.Strings("models", gateway.Models()),
	)

	return &application{
		config:  config,
		logger:  log,
		store:   st,
		gateway: gateway,
		engine:  engine,
	}, nil
}

func (a *application) Close() error {
	return a.store.Close()
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, log)
	if err != nil {
		return nil, err
	}

	return generator, nil
}

var errMemoryStore = errors.New("the memory store does not keep interviews between runs; configure store.driver")
