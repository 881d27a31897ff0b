package classifier

import (
	"strings"

	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
)

const (
	// MaxHosts is the number of distinct hosts a lobby may have.
	MaxHosts = 3
	// WarmupGames is how many games after a host takes over are skipped.
	WarmupGames = 2
	// MaxWarmups is how many skipped warmups a session may have unflagged.
	MaxWarmups = 2
	minScores  = 2
)

// Result is the outcome of classifying one session. A session with no
// games is rejected; Errors may be non-empty either way.
type Result struct {
	Games  []match.Game
	Errors calcerr.Set
}

func (r Result) Rejected() bool { return len(r.Games) == 0 }

// Scores flattens every accepted game's scores.
func (r Result) Scores() []match.Score {
	var out []match.Score
	for _, g := range r.Games {
		out = append(out, g.Scores...)
	}
	return out
}

type Classifier struct {
	ruleset string
	denied  map[string]struct{}
	logger  zerolog.Logger
}

func New(ruleset string, deniedAcronyms []string, logger zerolog.Logger) *Classifier {
	denied := make(map[string]struct{}, len(deniedAcronyms))
	for _, a := range deniedAcronyms {
		if a = strings.TrimSpace(a); a != "" {
			denied[strings.ToUpper(a)] = struct{}{}
		}
	}
	return &Classifier{ruleset: ruleset, denied: denied, logger: logger}
}

func NewFromConfig(cfg *config.Config, logger zerolog.Logger) *Classifier {
	return New(cfg.Ruleset, cfg.DeniedAcronyms, logger)
}

// Classify validates a fully merged session and extracts its rated games.
func (c *Classifier) Classify(session domain.Session, snap *match.Snapshot) Result {
	var errs calcerr.Set

	name, ok := ParseName(session.Name)
	if !ok {
		return Result{Errors: errs.With(calcerr.NameMismatch, "%q is not a tournament name", session.Name)}
	}
	if t := TypeOf(session.Name, name); t != SessionStandard {
		return Result{Errors: errs.With(calcerr.WrongSessionType, "%s lobby", t)}
	}
	if _, denied := c.denied[strings.ToUpper(name.Acronym)]; denied {
		return Result{Errors: errs.With(calcerr.BannedAcronym, "acronym %s", name.Acronym)}
	}

	if errs = checkHosts(snap.Events, errs); !errs.Empty() {
		return Result{Errors: errs}
	}

	games, errs := c.collectGames(snap.Events, errs)
	if len(games) == 0 {
		return Result{Errors: errs.With(calcerr.NoStandardScores, "no %s scores in session %d", c.ruleset, session.ID)}
	}

	c.logger.Debug().
		Int64("session_id", session.ID).
		Str("acronym", name.Acronym).
		Int("games", len(games)).
		Msg("session classified")
	return Result{Games: games, Errors: errs}
}

func hostChange(e match.Event) (int64, bool) {
	if e.Detail.Type != match.EventHostChanged || e.UserID == nil || *e.UserID == 0 {
		return 0, false
	}
	return *e.UserID, true
}

func checkHosts(events []match.Event, errs calcerr.Set) calcerr.Set {
	if len(events) > 1 {
		if id, ok := hostChange(events[1]); ok {
			return errs.With(calcerr.InGameSelfHost, "user %d took host right after creation", id)
		}
	}

	// The host change right after the host leaves is the lobby handing host
	// over, so its recipient is not counted.
	hosts := make(map[int64]struct{})
	var (
		current  int64
		handover bool
	)
	for _, e := range events {
		if id, ok := hostChange(e); ok {
			if !handover {
				hosts[id] = struct{}{}
			}
			current = id
			handover = false
			continue
		}
		if e.Detail.Type == match.EventPlayerLeft && e.UserID != nil && current != 0 && *e.UserID == current {
			current = 0
			handover = true
		}
	}
	if len(hosts) > MaxHosts {
		return errs.With(calcerr.TooManyHosts, "%d distinct hosts", len(hosts))
	}
	return errs
}

func (c *Classifier) collectGames(events []match.Event, errs calcerr.Set) ([]match.Game, calcerr.Set) {
	var (
		games      []match.Game
		warmupLeft int
		warmups    int
	)
	for _, e := range events {
		if _, ok := hostChange(e); ok {
			warmupLeft = WarmupGames
			continue
		}
		if e.Game == nil || e.Game.EndTime == nil {
			continue
		}
		g := e.Game

		if warmupLeft > 0 {
			warmupLeft--
			warmups++
			if warmups <= MaxWarmups {
				continue
			}
			errs = errs.With(calcerr.ExcessWarmups, "game %d is warmup number %d", g.ID, warmups)
		}

		switch {
		case g.Mode != c.ruleset:
			continue
		case g.Beatmap.Mode != "" && g.Beatmap.Mode != g.Mode:
			continue
		case g.TeamType != match.TeamTypeHeadToHead && g.TeamType != match.TeamTypeTeamVs:
			continue
		}

		if len(g.Scores) < minScores {
			errs = errs.With(calcerr.TooFewPlayers, "game %d has %d scores", g.ID, len(g.Scores))
			continue
		}

		game := g.Clone()
		for i := range game.Scores {
			game.Scores[i].GameID = game.ID
			game.Scores[i].Mods |= game.Mods
		}
		games = append(games, game)
	}
	return games, errs
}
