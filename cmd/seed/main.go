// File: cmd/seed/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"voice-ai-assistant/internal/config"
	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/infra/db/memory"
	pg "voice-ai-assistant/internal/infra/db/postgres"
	"voice-ai-assistant/internal/infra/logging"
	red "voice-ai-assistant/internal/infra/redis"
)

// seed loads the product catalog into postgres and the product images into
// redis, so a server started with those backends has data to search and show.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "truncate conversations and products first (manual end-to-end runs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Format = "console"
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	products, err := memory.LoadProducts(os.DirFS(filepath.Dir(cfg.Catalog.File)), filepath.Base(cfg.Catalog.File))
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	logger.Info().Int("products", len(products)).Str("file", cfg.Catalog.File).Msg("catalog loaded")

	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
		if *reset {
			if _, err := pool.Exec(ctx, `TRUNCATE conversations, products`); err != nil {
				logger.Fatal().Err(err).Msg("truncate")
			}
			logger.Info().Msg("conversations and products wiped")
		}
		if err := pg.NewProductRepo(pool).Upsert(ctx, products); err != nil {
			logger.Fatal().Err(err).Msg("upsert products")
		}
		logger.Info().Int("products", len(products)).Msg("postgres seeded")
	} else {
		logger.Info().Msg("database.url not set, skipping postgres")
	}

	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		n, err := uploadImages(ctx, red.NewImageStore(rc, red.DefaultImagePrefix), os.DirFS(cfg.Catalog.ImageDir), products)
		if err != nil {
			logger.Fatal().Err(err).Msg("upload images")
		}
		logger.Info().Int("images", n).Str("dir", cfg.Catalog.ImageDir).Msg("redis seeded")
	} else {
		logger.Info().Msg("redis.url not set, skipping images")
	}

	logger.Info().Msg("seeding complete")
}

type imagePutter interface {
	Put(ctx context.Context, productID string, image []byte) error
}

// uploadImages copies {id}.jpg for every product that has one.
func uploadImages(ctx context.Context, dst imagePutter, dir fs.FS, products []model.Product) (int, error) {
	n := 0
	for _, p := range products {
		b, err := fs.ReadFile(dir, p.ID+".jpg")
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("read image %s: %w", p.ID, err)
		}
		if err := dst.Put(ctx, p.ID, b); err != nil {
			return n, fmt.Errorf("store image %s: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}
