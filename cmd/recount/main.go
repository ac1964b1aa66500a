// Command recount repairs event and issue upvote counters from their vote rows
// and drops the cached records they invalidate.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"
)

func main() {
	only := flag.String("type", "", "Restrict to one content type (event or issue)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	targets := []models.ContentType{models.ContentTypeEvent, models.ContentTypeIssue}
	if strings.TrimSpace(*only) != "" {
		ct, err := models.ParseContentType(*only)
		if err != nil {
			log.Fatalf("Invalid -type: %v", err)
		}
		targets = []models.ContentType{ct}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	redisCache := cache.Connect(ctx, cfg.RedisURL)
	defer func() { _ = redisCache.Close() }()

	for _, ct := range targets {
		n, err := repository.RecountAll(ctx, db, ct)
		if err != nil {
			log.Fatalf("Recount %s failed: %v", ct, err)
		}
		dropped, err := repository.InvalidateAll(ctx, db, redisCache, ct)
		if err != nil {
			log.Fatalf("Cache invalidation for %s failed: %v", ct, err)
		}
		log.Printf("Recounted %d %s rows, invalidated %d cached records", n, ct, dropped)
	}
}
