// Command seed populates a development database with generated data.
package main

import (
	"context"
	"flag"
	"log"

	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/observability"
	"civicboard/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Seeder preset name")
	presetFile := flag.String("presets", "", "YAML presets file (defaults to the built-in presets)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel)
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	p, err := seed.LoadPreset(*preset, *presetFile)
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.FactoryOptions{Seed: *randSeed})
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, p)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d events, %d issues (preset %s)", sum.Users, sum.Events, sum.Issues, *preset)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
