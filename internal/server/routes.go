package server

import (
	"net/http"

	"osu-mp-tracker/internal/middleware"

	"connectrpc.com/connect"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const TrackerPath = "/osu.v1.TrackerService/"

// NewHandler mounts every tracker procedure behind the request-id and CORS
// middleware.
func NewHandler(ts *TrackerServer, logger zerolog.Logger) http.Handler {
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}

	mux := http.NewServeMux()
	mux.Handle(TrackerPath+"GetPlayer", connect.NewUnaryHandler(TrackerPath+"GetPlayer", ts.GetPlayer, opts...))
	mux.Handle(TrackerPath+"GetRatingHistory", connect.NewUnaryHandler(TrackerPath+"GetRatingHistory", ts.GetRatingHistory, opts...))
	mux.Handle(TrackerPath+"GetLeaderboard", connect.NewUnaryHandler(TrackerPath+"GetLeaderboard", ts.GetLeaderboard, opts...))
	mux.Handle(TrackerPath+"GetSession", connect.NewUnaryHandler(TrackerPath+"GetSession", ts.GetSession, opts...))
	mux.Handle(TrackerPath+"GetSessionGames", connect.NewUnaryHandler(TrackerPath+"GetSessionGames", ts.GetSessionGames, opts...))
	mux.Handle(TrackerPath+"GetStats", connect.NewUnaryHandler(TrackerPath+"GetStats", ts.GetStats, opts...))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return middleware.RequestID(logger)(c.Handler(mux))
}
