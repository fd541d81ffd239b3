// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"voice-ai-assistant/internal/config"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
	aiAdapters "voice-ai-assistant/internal/infra/adapters/ai"
	"voice-ai-assistant/internal/infra/adapters/speech"
	"voice-ai-assistant/internal/infra/api"
	"voice-ai-assistant/internal/infra/db/memory"
	pg "voice-ai-assistant/internal/infra/db/postgres"
	"voice-ai-assistant/internal/infra/logging"
	"voice-ai-assistant/internal/infra/metrics"
	red "voice-ai-assistant/internal/infra/redis"
	"voice-ai-assistant/internal/infra/scheduler"
	"voice-ai-assistant/internal/infra/security"
	"voice-ai-assistant/internal/usecase"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (unredacted logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled: message content is logged")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo("server", version)

	// ---- Redis (optional unless storage.driver=redis) ----
	var redisClient red.RedisClient
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		redisClient = rc
	}

	// ---- Postgres (only for storage.driver=postgres) ----
	var pool *pgxpool.Pool
	if cfg.Storage.Driver == "postgres" {
		pool, err = pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		go pg.ReportPoolStats(ctx, pool, 30*time.Second)
	}

	// ---- Conversations ----
	var conversations repository.ConversationRepository
	var sweeper scheduler.Sweeper
	switch cfg.Storage.Driver {
	case "redis":
		conversations = red.NewConversationStore(redisClient, cfg.Storage.TTL)
	case "postgres":
		repo := pg.NewConversationRepo(pool)
		conversations, sweeper = repo, repo
	default:
		repo := memory.NewConversationRepo()
		conversations, sweeper = repo, repo
	}
	if cfg.Security.EncryptionKey != "" {
		key, err := security.ParseKey(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("security.encryption_key")
		}
		c, err := security.NewCipher(key)
		if err != nil {
			logger.Fatal().Err(err).Msg("cipher")
		}
		conversations = security.NewSealedConversations(conversations, c)
		logger.Info().Msg("stored conversations are encrypted")
	}
	if sweeper != nil {
		sched := scheduler.NewScheduler(cfg.Storage.SweepInterval, cfg.Storage.TTL, sweeper, logger)
		sched.Start(ctx)
		defer sched.Stop()
	}

	// ---- Catalog + images ----
	catalog, err := buildCatalog(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog")
	}
	var images repository.ImageRepository
	if redisClient != nil {
		images = red.NewImageStore(redisClient, red.DefaultImagePrefix)
	} else {
		images = memory.NewImageDir(os.DirFS(cfg.Catalog.ImageDir))
	}

	// ---- AI ----
	ai, err := buildAI(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai adapter")
	}
	tools := usecase.NewProductTools(catalog, cfg.Catalog.ImageBaseURL)
	chatUC := usecase.NewChatUseCase(conversations, ai, aiAdapters.NewTokenCounter(), tools.Tools(), usecase.ChatOptions{
		Persona:         cfg.AI.Persona,
		InitMessage:     cfg.AI.InitMessage,
		Model:           cfg.AI.DefaultModel,
		MaxPromptTokens: cfg.AI.MaxPromptTokens,
		Dev:             cfg.Runtime.Dev,
	}, logger)

	// ---- Tokens ----
	issuer := speech.NewSTSIssuer(cfg.Speech.Key, cfg.Speech.Region, cfg.Speech.STSURL, nil)
	tokenUC := usecase.NewTokenUseCase(issuer, logger)
	if cfg.Speech.Key == "" || cfg.Speech.Region == "" {
		logger.Warn().Msg("speech key or region missing: /api/get-speech-token will answer 400")
	}

	var limiter api.RateLimiter
	if redisClient != nil {
		chatUC = chatUC.WithLocker(red.NewLocker(redisClient))
		if cfg.Server.TokenRateLimit > 0 {
			limiter = red.NewRateLimiter(redisClient, "speech_token")
		}
	}

	// ---- HTTP ----
	srv := api.NewServer(chatUC, tokenUC, images, limiter, api.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		TokenRateLimit: cfg.Server.TokenRateLimit,
	}, logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info().Str("addr", addr).Str("ai", ai.Name()).Str("storage", cfg.Storage.Driver).Msg("chat backend listening")
		if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildCatalog loads the YAML catalog. With postgres it is upserted and
// queried from the database instead of memory.
func buildCatalog(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zerolog.Logger) (repository.ProductCatalog, error) {
	products, err := memory.LoadProducts(os.DirFS(filepath.Dir(cfg.Catalog.File)), filepath.Base(cfg.Catalog.File))
	if err != nil {
		if pool == nil {
			return nil, err
		}
		// the table may already be seeded
		logger.Warn().Err(err).Msg("catalog file unavailable, using database contents")
	}
	if pool == nil {
		logger.Info().Int("products", len(products)).Msg("catalog loaded")
		return memory.NewProductCatalog(products), nil
	}
	repo := pg.NewProductRepo(pool)
	if len(products) > 0 {
		if err := repo.Upsert(ctx, products); err != nil {
			return nil, err
		}
		logger.Info().Int("products", len(products)).Msg("catalog seeded")
	}
	return repo, nil
}

// buildAI creates every provider that has a key and routes models between
// them. ai.provider picks the default; otherwise Metis, Gemini and OpenAI are
// preferred in that order. With no key at all the noop adapter echoes turns.
func buildAI(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.AIServiceAdapter, error) {
	byProvider := map[string]adapter.AIServiceAdapter{}
	var order []string

	if cfg.AI.MetisKey != "" {
		a, err := aiAdapters.NewMetisOpenAIAdapter(cfg.AI.MetisKey, cfg.AI.DefaultModel, cfg.AI.MetisBaseURL, cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("metis: %w", err)
		}
		byProvider["metis"] = a
		order = append(order, "metis")
	}
	if cfg.AI.GeminiKey != "" {
		model := cfg.AI.DefaultModel
		if !strings.HasPrefix(strings.ToLower(model), "gemini") {
			model = ""
		}
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, model, cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		byProvider["gemini"] = a
		order = append(order, "gemini")
	}
	if cfg.AI.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, "", cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		byProvider["openai"] = a
		order = append(order, "openai")
	}

	def := strings.ToLower(cfg.AI.Provider)
	switch {
	case def == "noop" || (def == "" && len(order) == 0):
		logger.Warn().Msg("no AI provider configured, replies are echoes")
		return aiAdapters.NewNoopAIAdapter(logger), nil
	case def == "":
		def = order[0]
	case byProvider[def] == nil:
		return nil, fmt.Errorf("ai.provider %q has no api key", def)
	}

	multi := aiAdapters.NewMultiAIAdapter(def, byProvider, map[string]string{cfg.AI.DefaultModel: def})
	logger.Info().Str("default", def).Strs("providers", order).Str("model", cfg.AI.DefaultModel).Msg("AI adapters ready")
	return aiAdapters.NewLimitedAI(multi, cfg.AI.ConcurrentLimit), nil
}
