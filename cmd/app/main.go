// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/config"
	"voice-ai-assistant/internal/infra/adapters/audio"
	"voice-ai-assistant/internal/infra/adapters/chat"
	"voice-ai-assistant/internal/infra/adapters/speech"
	"voice-ai-assistant/internal/infra/i18n"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/infra/metrics"
	"voice-ai-assistant/internal/infra/uibridge"
	"voice-ai-assistant/internal/infra/worker"
	"voice-ai-assistant/internal/usecase"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (debug logs, unredacted content)")
	input := flag.String("input", "", "WAV file used by /voice when no file is given")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// stdout belongs to the conversation
	logger := logging.NewWithWriter(os.Stderr, cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo("app", version)
	if cfg.Metrics.Addr != "" {
		go serve(ctx, logger, "metrics", cfg.Metrics.Addr, promhttp.Handler())
	}

	catalog, err := i18n.LoadCatalog(i18n.LocalesFS)
	if err != nil {
		logger.Fatal().Err(err).Msg("load locales")
	}

	// ---- Workers ----
	pool := worker.NewPool(cfg.Client.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Session + language ----
	store := usecase.NewSessionStore(cfg.Client.MaxMessages)
	lang, err := usecase.NewLanguageProfile(cfg.Client.DefaultLanguage, cfg.Client.CandidateLanguages)
	if err != nil {
		logger.Fatal().Err(err).Msg("language profile")
	}

	// ---- Speech ----
	tokens := speech.NewTokenClient(cfg.Client.TokenURL, cfg.Speech.TokenTTL, nil, logger)
	provider := speech.NewAzureProvider(speech.AzureConfig{
		STTURL:       cfg.Speech.STTURL,
		TTSURL:       cfg.Speech.TTSURL,
		OutputFormat: cfg.Speech.OutputFormat,
	}, nil, logger)
	inputFile := cfg.Speech.InputFile
	if *input != "" {
		inputFile = *input
	}
	source := audio.NewFileSource(inputFile)
	sink := audio.NewFileSink(cfg.Speech.OutputDir, cfg.Speech.PlayerCommand, logger)
	channel := usecase.NewSpeechChannel(provider, tokens, source, sink, logger)

	// ---- Controller ----
	backend := chat.NewHTTPClient(cfg.Client.BackendURL, nil, logger)
	ctrl := usecase.NewConversationController(store, lang, channel, backend, pool, logger)
	go func() {
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("conversation loop")
		}
	}()

	// ---- Optional browser UI ----
	if cfg.Client.UIAddr != "" {
		hub := uibridge.NewHub(ctrl, source, uibridge.Options{
			Origins:  cfg.Client.UIOrigins,
			InputDir: cfg.Client.UIInputDir,
		}, logger)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		go serve(ctx, logger, "ui bridge", cfg.Client.UIAddr, mux)
	}

	logger.Info().
		Str("backend", cfg.Client.BackendURL).
		Str("language", cfg.Client.DefaultLanguage).
		Int("max_messages", cfg.Client.MaxMessages).
		Msg("voice assistant started")

	con := newConsole(ctrl, source, catalog, os.Stdout)
	if err := con.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("console")
	}
	stop()
	logger.Info().Msg("shutdown complete")
}

// serve runs an HTTP listener until ctx ends.
func serve(ctx context.Context, logger *zerolog.Logger, name, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()
	logger.Info().Str("addr", addr).Msgf("%s listening", name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s stopped", name)
	}
}
