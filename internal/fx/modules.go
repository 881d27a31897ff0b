package fx

import (
	"database/sql"

	"osu-mp-tracker/internal/api"
	"osu-mp-tracker/internal/classifier"
	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/database"
	"osu-mp-tracker/internal/db"
	"osu-mp-tracker/internal/difficulty"
	"osu-mp-tracker/internal/framestore"
	"osu-mp-tracker/internal/logger"
	"osu-mp-tracker/internal/rating"
	"osu-mp-tracker/internal/repository"
	"osu-mp-tracker/internal/server"
	"osu-mp-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideFrameRepository(r *repository.FrameRepository) framestore.Repository { return r }

func ProvideFrameStore(s *framestore.Store) service.FrameStore { return s }

func ProvideSessionStore(r *repository.SessionRepository) service.SessionStore { return r }

func ProvideStateStore(r *repository.StateRepository) service.StateStore { return r }

func ProvideResultStore(r *repository.ResultRepository) service.ResultStore { return r }

func ProvideRatingStore(r *repository.RatingRepository) rating.Store { return r }

// ProvideDifficulty puts the persistent beatmap cache in front of whichever
// oracle the config selects.
func ProvideDifficulty(cfg *config.Config, beatmaps *repository.BeatmapRepository, logger zerolog.Logger) (difficulty.Oracle, difficulty.PerformanceCalculator) {
	oracle, calc := difficulty.New(cfg, logger)
	return difficulty.NewCached(oracle, beatmaps, logger), calc
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewFrameRepository),
	fx.Provide(repository.NewBeatmapRepository),
	fx.Provide(repository.NewStateRepository),
	fx.Provide(repository.NewRatingRepository),
	fx.Provide(repository.NewHistoryRepository),
	fx.Provide(repository.NewResultRepository),
	fx.Provide(
		ProvideFrameRepository,
		ProvideFrameStore,
		ProvideSessionStore,
		ProvideStateStore,
		ProvideResultStore,
		ProvideRatingStore,
	),
	// storage and rating inputs
	fx.Provide(framestore.New),
	fx.Provide(ProvideDifficulty),
	fx.Provide(classifier.NewFromConfig),
	// api client
	fx.Provide(api.NewOsuClient),
	fx.Provide(api.NewUpstream),
	// svc
	fx.Provide(service.NewDiscoveryService),
	fx.Provide(service.NewSessionUpdater),
	fx.Provide(service.NewRatingProcessor),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewSessionService),
	// server
	fx.Provide(server.NewTrackerServer),
)
