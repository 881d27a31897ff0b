package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	OsuClientID     string `env:"OSU_CLIENT_ID"`
	OsuClientSecret string `env:"OSU_CLIENT_SECRET"`
	OsuAPIURL       string `env:"OSU_API_URL" envDefault:"https://osu.ppy.sh"`
	DifficultyURL   string `env:"DIFFICULTY_URL"`

	DBPath     string `env:"DB_PATH" envDefault:"osu-mp.db"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	UpstreamRequests int           `env:"UPSTREAM_REQUESTS" envDefault:"60"`
	UpstreamInterval time.Duration `env:"UPSTREAM_INTERVAL" envDefault:"1m"`

	DiscoveryStartID  int64         `env:"DISCOVERY_START_ID" envDefault:"0"`
	UpdateInterval    time.Duration `env:"UPDATE_INTERVAL" envDefault:"1m"`
	UpdateParallelism int           `env:"UPDATE_PARALLELISM" envDefault:"8"`

	ProcessInterval    time.Duration `env:"PROCESS_INTERVAL" envDefault:"10m"`
	ProcessParallelism int           `env:"PROCESS_PARALLELISM" envDefault:"4"`
	ProcessBacklog     int           `env:"PROCESS_BACKLOG" envDefault:"500"`
	ChunkSize          int           `env:"CHUNK_SIZE" envDefault:"50"`

	Ruleset        string   `env:"RULESET" envDefault:"osu"`
	DeniedAcronyms []string `env:"DENIED_ACRONYMS" envSeparator:"," envDefault:"TEST,SCRIM,PRAC"`

	// Workers can be switched off to run the read API alone.
	WorkersEnabled bool `env:"WORKERS_ENABLED" envDefault:"true"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("ruleset", cfg.Ruleset).
		Int("update_parallelism", cfg.UpdateParallelism).
		Int("process_parallelism", cfg.ProcessParallelism).
		Int("chunk_size", cfg.ChunkSize).
		Bool("workers", cfg.WorkersEnabled).
		Bool("difficulty_service", cfg.DifficultyURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

// Parse reads the environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WorkersEnabled && (cfg.OsuClientID == "" || cfg.OsuClientSecret == "") {
		return nil, fmt.Errorf("OSU_CLIENT_ID and OSU_CLIENT_SECRET are required when workers are enabled")
	}
	if cfg.UpdateParallelism < 1 || cfg.ProcessParallelism < 1 || cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("parallelism and chunk size must be positive")
	}
	if cfg.UpstreamRequests < 1 || cfg.UpstreamInterval <= 0 {
		return nil, fmt.Errorf("upstream rate limit must be positive")
	}
	return &cfg, nil
}

var Module = fx.Provide(Load)
