package main

import (
	"flag"
	"os"

	"github.com/Rrens/muni-admin/internal/config"
	"github.com/Rrens/muni-admin/internal/logging"
	"github.com/Rrens/muni-admin/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	direction := flag.String("direction", "up", "up applies pending migrations, down rolls back one")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if _, err := logging.Setup(cfg.Logging, os.Getenv("ENV")); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("direction", *direction).
		Msg("Migrating database")

	switch *direction {
	case "up":
		err = postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL())
	case "down":
		err = postgres.RollbackMigration(cfg.Database.DSN(), cfg.Database.MigrationsURL())
	default:
		log.Fatal().Str("direction", *direction).Msg("Unknown direction")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
