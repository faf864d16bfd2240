// Command server runs the modelgate inference gateway.
//
// Configuration is layered: built-in defaults, then a YAML config file
// (./config.yaml, /etc/modelgate/config.yaml, or the path given with
// -config / MODELGATE_CONFIG), then MODELGATE_* environment overrides.
// See pkg/config for the full set of settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelgate/modelgate/pkg/config"
	"github.com/modelgate/modelgate/pkg/debug"
	"github.com/modelgate/modelgate/pkg/gateway"
	"github.com/modelgate/modelgate/pkg/provider/chat"
	"github.com/modelgate/modelgate/pkg/provider/completion"
	"github.com/modelgate/modelgate/pkg/provider/generic"
	"github.com/modelgate/modelgate/pkg/provider/image"
	"github.com/modelgate/modelgate/pkg/provider/transcribe"
	"github.com/modelgate/modelgate/pkg/registry"
	"github.com/modelgate/modelgate/pkg/storage"
	"github.com/modelgate/modelgate/pkg/storage/memory"
	"github.com/modelgate/modelgate/pkg/storage/postgres"
	transporthttp "github.com/modelgate/modelgate/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Debug categories and log level come from MODELGATE_DEBUG and
	// MODELGATE_LOG_LEVEL; Init also installs the default slog handler.
	debug.Init("", "")
	logger := slog.Default()

	// Provider adapters, one per backend family.
	completionProv, err := completion.New(completion.Config{
		BaseURL: cfg.Providers.Completion.BaseURL,
		APIKey:  cfg.Providers.Completion.APIKey,
		Timeout: cfg.Providers.Completion.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating completion provider: %w", err)
	}
	defer completionProv.Close()

	chatProv, err := chat.New(chat.Config{
		BaseURL: cfg.Providers.Chat.BaseURL,
		APIKey:  cfg.Providers.Chat.APIKey,
		Timeout: cfg.Providers.Chat.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating chat provider: %w", err)
	}
	defer chatProv.Close()

	transcribeProv, err := transcribe.New(transcribe.Config{
		BaseURL: cfg.Providers.Transcribe.BaseURL,
		APIKey:  cfg.Providers.Transcribe.APIKey,
		Timeout: cfg.Providers.Transcribe.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating transcribe provider: %w", err)
	}
	defer transcribeProv.Close()

	imageProv, err := image.New(image.Config{
		BaseURL: cfg.Providers.Image.BaseURL,
		APIKey:  cfg.Providers.Image.APIKey,
		Timeout: cfg.Providers.Image.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating image provider: %w", err)
	}
	defer imageProv.Close()

	genericProv, err := generic.New(generic.Config{
		BaseURL: cfg.Providers.Generic.BaseURL,
		APIKey:  cfg.Providers.Generic.APIKey,
		Timeout: cfg.Providers.Generic.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating generic provider: %w", err)
	}
	defer genericProv.Close()

	// Activation persistence.
	var store storage.ActivationStore
	switch cfg.Storage.Type {
	case "postgres":
		pg, err := postgres.New(context.Background(), postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		store = pg
		logger.Info("storage enabled", "type", "postgres")
	default:
		store = memory.New()
		logger.Info("storage enabled", "type", "memory")
	}
	defer store.Close()

	// Activation registry, hydrated from the store.
	reg := registry.New(cfg.Models, store, logger)
	if err := reg.Load(context.Background()); err != nil {
		return fmt.Errorf("loading activation state: %w", err)
	}

	resolver := gateway.NewResolver(gateway.Providers{
		Completion: completionProv,
		Chat:       chatProv,
		Transcribe: transcribeProv,
		Image:      imageProv,
		Generic:    genericProv,
	}, gateway.Rules{
		CompletionPrefixes: cfg.Resolver.CompletionPrefixes,
		TranscriptionIDs:   cfg.Resolver.TranscriptionIDs,
		ImagePrefixes:      cfg.Resolver.ImagePrefixes,
		ChatPrefixes:       cfg.Resolver.ChatPrefixes,
	})

	gw := gateway.New(gateway.Config{
		InferenceTimeout: cfg.Gateway.InferenceTimeout,
		MaxRetries:       cfg.Gateway.MaxRetries,
		RetryDelay:       cfg.Gateway.RetryDelay,
		DefaultModel:     cfg.Gateway.DefaultModel,
	}, reg, resolver, logger)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	srv := transporthttp.NewServer(gw, reg,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithMetricsPath(metricsPath),
		transporthttp.WithLogger(logger),
	)

	logger.Info("gateway configured",
		"models", len(cfg.Models),
		"default_model", cfg.Gateway.DefaultModel,
		"storage", cfg.Storage.Type,
	)

	return srv.ListenAndServe()
}
