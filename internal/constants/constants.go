package constants

import "time"

// Session lifecycle tolerances. Both were tuned against live lobbies.
const (
	IdleCompletion   = 2 * time.Hour
	DiscoveryBackoff = 15 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	UpstreamRetryBase = 1 * time.Second
	UpstreamRetryCap  = 2 * time.Minute
	TokenRefreshSlack = 1 * time.Minute
)

const (
	DBMaxOpenConns    = 8
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	// DiscoveryFilterSize sizes the bloom filter of seen session ids.
	DiscoveryFilterSize = 1_000_000
	DiscoveryFilterFP   = 0.001
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// UpdateBatch caps how many in-progress sessions one updater pass visits.
	UpdateBatch         = 1000
	HistoryPageLimit    = 100
	LeaderboardLimit    = 100
	LeaderboardMinGames = 5
)
