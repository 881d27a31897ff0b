package server

import (
	"context"
	"errors"

	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/repository"
	"osu-mp-tracker/internal/service"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

type TrackerServer struct {
	playerSvc  *service.PlayerService
	sessionSvc *service.SessionService
}

func NewTrackerServer(playerSvc *service.PlayerService, sessionSvc *service.SessionService) *TrackerServer {
	return &TrackerServer{playerSvc: playerSvc, sessionSvc: sessionSvc}
}

func toConnectError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, service.ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
	return connect.NewError(connect.CodeInternal, err)
}

func (s *TrackerServer) GetPlayer(ctx context.Context, req *connect.Request[PlayerRequest]) (*connect.Response[PlayerResponse], error) {
	profile, err := s.playerSvc.GetPlayer(ctx, req.Msg.PlayerID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	resp := &PlayerResponse{
		Player:  toPlayer(profile.Player),
		Ratings: make([]Rating, 0, len(profile.Ratings)),
	}
	for _, r := range profile.Ratings {
		resp.Ratings = append(resp.Ratings, toRating(r))
	}
	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) GetRatingHistory(ctx context.Context, req *connect.Request[RatingHistoryRequest]) (*connect.Response[RatingHistoryResponse], error) {
	rows, err := s.playerSvc.GetRatingHistory(ctx, req.Msg.PlayerID, req.Msg.AttributeID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	resp := &RatingHistoryResponse{History: make([]RatingHistoryEntry, 0, len(rows))}
	for _, h := range rows {
		resp.History = append(resp.History, RatingHistoryEntry{
			SessionID:     h.SessionID,
			GameID:        h.GameID,
			OldMu:         h.OldMu,
			NewMu:         h.NewMu,
			OldSigma:      h.OldSigma,
			NewSigma:      h.NewSigma,
			OldOrdinal:    h.OldOrdinal,
			NewOrdinal:    h.NewOrdinal,
			StarRating:    h.StarRating,
			ActualRank:    h.ActualRank,
			PredictedRank: h.PredictedRank,
			CreatedAt:     h.CreatedAt,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) GetLeaderboard(ctx context.Context, req *connect.Request[LeaderboardRequest]) (*connect.Response[LeaderboardResponse], error) {
	entries, err := s.playerSvc.Leaderboard(ctx, req.Msg.AttributeID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	resp := &LeaderboardResponse{Entries: make([]LeaderboardEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, LeaderboardEntry{
			Rank:   e.Rank,
			Player: toPlayer(e.Player),
			Rating: toRating(e.Rating),
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) GetSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	detail, err := s.sessionSvc.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	sess := detail.Session
	resp := &SessionResponse{
		ID:           sess.ID,
		Name:         sess.Name,
		Status:       string(sess.Status),
		StartTime:    sess.StartTime,
		EndTime:      sess.EndTime,
		IsTournament: sess.IsTournament,
		Log:          detail.Errors.Reasons(),
		Players:      make([]SessionPlayer, 0, len(detail.Players)),
	}
	for _, k := range detail.Errors.Kinds() {
		resp.Errors = append(resp.Errors, k.String())
	}
	for _, p := range detail.Players {
		resp.Players = append(resp.Players, SessionPlayer{
			PlayerID:    p.PlayerID,
			SessionCost: p.SessionCost,
			GamesPlayed: p.GamesPlayed,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) GetSessionGames(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionGamesResponse], error) {
	games, err := s.sessionSvc.GetSessionGames(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	resp := &SessionGamesResponse{Games: make([]Game, 0, len(games))}
	for _, g := range games {
		game := Game{
			ID:          g.ID,
			BeatmapID:   g.BeatmapID,
			Mods:        g.Mods.String(),
			ScoringType: g.ScoringType,
			TeamType:    g.TeamType,
			StartTime:   g.StartTime,
			EndTime:     g.EndTime,
			Scores:      make([]Score, 0, len(g.Scores)),
		}
		for _, sc := range g.Scores {
			game.Scores = append(game.Scores, Score{
				UserID:     sc.UserID,
				Team:       sc.Team,
				Mods:       sc.Mods.String(),
				Accuracy:   sc.Accuracy,
				MaxCombo:   sc.MaxCombo,
				TotalScore: sc.TotalScore,
				PP:         sc.PP,
			})
		}
		resp.Games = append(resp.Games, game)
	}
	return connect.NewResponse(resp), nil
}

func toPlayer(p domain.Player) Player {
	return Player{ID: p.ID, Username: p.Username, Country: p.Country, AvatarURL: p.AvatarURL}
}

func toRating(r service.RatingView) Rating {
	return Rating{
		AttributeID:          r.AttributeID,
		Attribute:            r.Attribute.String(),
		Mu:                   r.Mu,
		Sigma:                r.Sigma,
		Ordinal:              r.Ordinal,
		StarRating:           r.StarRating,
		Status:               string(r.Status),
		GamesPlayed:          r.GamesPlayed,
		WinAmount:            r.WinAmount,
		TotalOpponentsAmount: r.TotalOpponentsAmount,
		PPValues:             r.PPValues,
		UpdatedAt:            r.UpdatedAt,
	}
}

func (s *TrackerServer) GetStats(ctx context.Context, _ *connect.Request[StatsRequest]) (*connect.Response[StatsResponse], error) {
	counts, err := s.sessionSvc.Stats(ctx)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	resp := &StatsResponse{Sessions: make(map[string]int, len(counts))}
	for status, n := range counts {
		resp.Sessions[string(status)] = n
	}
	return connect.NewResponse(resp), nil
}
