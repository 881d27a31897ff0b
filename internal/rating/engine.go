package rating

import (
	"context"
	"fmt"
	"sort"
	"time"

	"osu-mp-tracker/internal/calcerr"
	"osu-mp-tracker/internal/difficulty"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
)

// PreparedScore is a score with its chart difficulty under the score's mods.
// PP is filled in when the calculator could rate it.
type PreparedScore struct {
	match.Score
	Attributes *domain.DifficultyAttributes
}

type PreparedGame struct {
	Game   match.Game
	Scores []PreparedScore
}

// Prepared is a filtered session with every external lookup resolved, ready
// for Apply.
type Prepared struct {
	SessionID int64
	Games     []PreparedGame
	Errors    calcerr.Set
}

func (p *Prepared) PlayerIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, g := range p.Games {
		for _, s := range g.Scores {
			if _, ok := seen[s.UserID]; ok {
				continue
			}
			seen[s.UserID] = struct{}{}
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// Outcome is everything a session's rating pass produces besides the
// ratings themselves, which stay in the Cache until committed.
type Outcome struct {
	SessionID       int64
	Histories       []domain.RatingHistory
	PlayerHistories []domain.PlayerHistory
	Errors          calcerr.Set
}

type Engine struct {
	oracle difficulty.Oracle
	calc   difficulty.PerformanceCalculator
	cache  *Cache
	logger zerolog.Logger
	now    func() time.Time
}

func NewEngine(oracle difficulty.Oracle, calc difficulty.PerformanceCalculator, cache *Cache, logger zerolog.Logger) *Engine {
	return &Engine{
		oracle: oracle,
		calc:   calc,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// ProcessSession prepares and applies one filtered session.
func (e *Engine) ProcessSession(ctx context.Context, sessionID int64, games []match.Game) (Outcome, error) {
	p, err := e.Prepare(ctx, sessionID, games)
	if err != nil {
		return Outcome{}, err
	}
	return e.Apply(p), nil
}

// Prepare resolves difficulty and pp for every score and loads the
// participants' ratings. It is safe to call concurrently.
func (e *Engine) Prepare(ctx context.Context, sessionID int64, games []match.Game) (*Prepared, error) {
	p := &Prepared{SessionID: sessionID}

	for _, g := range games {
		pg := PreparedGame{Game: g, Scores: make([]PreparedScore, 0, len(g.Scores))}
		unsupported := false
		for _, s := range g.Scores {
			attrs, err := e.oracle.GetDifficulty(ctx, g.BeatmapID, s.Mods)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				e.logger.Warn().Err(err).Int64("beatmap_id", g.BeatmapID).Msg("difficulty lookup failed")
				attrs = nil
			}
			if attrs == nil {
				unsupported = true
			}

			ps := PreparedScore{Score: s, Attributes: attrs}
			if attrs != nil {
				pp, err := e.calc.Calculate(ctx, attrs, s)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					e.logger.Warn().Err(err).Int64("game_id", g.ID).Int64("user_id", s.UserID).Msg("pp calculation failed")
					pp = nil
				}
				ps.PP = pp
			}
			pg.Scores = append(pg.Scores, ps)
		}
		if unsupported {
			p.Errors = p.Errors.With(calcerr.UnsupportedBeatmap, "beatmap %d in game %d", g.BeatmapID, g.ID)
		}
		p.Games = append(p.Games, pg)
	}

	if err := e.cache.Load(ctx, p.PlayerIDs()); err != nil {
		return nil, fmt.Errorf("failed to prepare session %d: %w", sessionID, err)
	}
	return p, nil
}

// Apply runs every bucket of every game through the rating update. Sessions
// must be applied one at a time in start-time order.
func (e *Engine) Apply(p *Prepared) Outcome {
	now := e.now()
	out := Outcome{SessionID: p.SessionID, Errors: p.Errors}

	games := make([]match.Game, 0, len(p.Games))
	for _, g := range p.Games {
		bs := bucketize(g)
		for _, id := range sortedKeys(bs) {
			attr, _ := DecodeAttribute(id)
			var hist []domain.RatingHistory
			if attr.Scoring == ScoringPP {
				hist = e.applyPP(id, bs[id], now)
			} else {
				hist = e.applySkill(attr, g.Game.TeamType, bs[id], now)
			}
			for i := range hist {
				hist[i].SessionID = p.SessionID
				hist[i].GameID = g.Game.ID
			}
			out.Histories = append(out.Histories, hist...)
		}

		game := g.Game
		game.Scores = make([]match.Score, len(g.Scores))
		for i, s := range g.Scores {
			game.Scores[i] = s.Score
		}
		games = append(games, game)
	}

	costs := SessionCost(games)
	played := make(map[int64]int)
	for _, g := range games {
		for _, s := range g.Scores {
			played[s.UserID]++
		}
	}
	for _, id := range p.PlayerIDs() {
		out.PlayerHistories = append(out.PlayerHistories, domain.PlayerHistory{
			PlayerID:    id,
			SessionID:   p.SessionID,
			SessionCost: costs[id],
			GamesPlayed: played[id],
			CreatedAt:   now,
		})
	}

	e.logger.Debug().
		Int64("session_id", p.SessionID).
		Int("games", len(games)).
		Int("histories", len(out.Histories)).
		Msg("session applied")
	return out
}

type entry struct {
	score      match.Score
	starRating float64
}

// bucketize groups a game's scores by attribute id.
func bucketize(g PreparedGame) map[int][]entry {
	out := make(map[int][]entry)
	for _, s := range g.Scores {
		var sr float64
		if s.Attributes != nil {
			sr = s.Attributes.StarRating
		}
		e := entry{score: s.Score, starRating: sr}
		for _, mod := range Modifications(s.Mods) {
			for _, skill := range Skillsets(s.Attributes) {
				for _, method := range ScoringMethods() {
					a := Attribute{Modification: mod, Skillset: skill, Scoring: method}
					if !a.Valid() {
						continue
					}
					if method == ScoringPP && s.PP == nil {
						continue
					}
					out[a.ID()] = append(out[a.ID()], e)
				}
			}
		}
	}
	return out
}

func sortedKeys(m map[int][]entry) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// methodKeys orders the values a method compares on, tie-breaks last.
func methodKeys(method ScoringMethod, s match.Score) [3]float64 {
	score, acc, combo := float64(s.TotalScore), s.Accuracy, float64(s.MaxCombo)
	switch method {
	case ScoringScore:
		return [3]float64{score, acc, combo}
	case ScoringAccuracy:
		return [3]float64{acc, score, combo}
	case ScoringCombo:
		return [3]float64{combo, score, acc}
	case ScoringPP, scoringCount:
	}
	return [3]float64{}
}

// groupTeams splits bucket entries into competing sides.
func groupTeams(entries []entry, teamType string) [][]entry {
	if teamType != match.TeamTypeTeamVs {
		teams := make([][]entry, len(entries))
		for i, e := range entries {
			teams[i] = []entry{e}
		}
		return teams
	}

	bySide := make(map[string][]entry)
	var sides []string
	for _, e := range entries {
		if _, ok := bySide[e.score.Team]; !ok {
			sides = append(sides, e.score.Team)
		}
		bySide[e.score.Team] = append(bySide[e.score.Team], e)
	}
	sort.Strings(sides)
	teams := make([][]entry, len(sides))
	for i, side := range sides {
		teams[i] = bySide[side]
	}
	return teams
}

// rankByKeys assigns 1-based competition ranks, comparing keys
// lexicographically with higher values first.
func rankByKeys(keys [][3]float64) []int {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	less := func(a, b [3]float64) bool {
		for i := range a {
			if a[i] != b[i] {
				return a[i] > b[i]
			}
		}
		return false
	}
	sort.SliceStable(order, func(a, b int) bool { return less(keys[order[a]], keys[order[b]]) })

	ranks := make([]int, len(keys))
	for pos, idx := range order {
		if pos > 0 && keys[idx] == keys[order[pos-1]] {
			ranks[idx] = ranks[order[pos-1]]
			continue
		}
		ranks[idx] = pos + 1
	}
	return ranks
}

func (e *Engine) applySkill(attr Attribute, teamType string, entries []entry, now time.Time) []domain.RatingHistory {
	teams := groupTeams(entries, teamType)
	if len(teams) < 2 {
		return nil
	}
	id := attr.ID()

	keys := make([][3]float64, len(teams))
	skills := make([][]Skill, len(teams))
	ratings := make([][]*domain.Rating, len(teams))
	for i, team := range teams {
		for _, en := range team {
			k := methodKeys(attr.Scoring, en.score)
			for j := range keys[i] {
				keys[i][j] += k[j] / float64(len(team))
			}
			r := e.cache.Mutable(en.score.UserID, id, now)
			ratings[i] = append(ratings[i], r)
			skills[i] = append(skills[i], Skill{Mu: r.Mu, Sigma: r.Sigma})
		}
	}

	actual := rankByKeys(keys)
	predicted := PredictRanks(skills)
	updated := Rate(skills, actual)

	var out []domain.RatingHistory
	for i, team := range teams {
		opponents := len(entries) - len(team)
		var wins int
		for q := range teams {
			if q != i && actual[q] > actual[i] {
				wins += len(teams[q])
			}
		}
		for j, en := range team {
			r := ratings[i][j]
			h := domain.RatingHistory{
				PlayerID:      r.PlayerID,
				AttributeID:   id,
				OldMu:         r.Mu,
				OldSigma:      r.Sigma,
				OldOrdinal:    r.Ordinal,
				StarRating:    en.starRating,
				ActualRank:    actual[i],
				PredictedRank: predicted[i],
				CreatedAt:     now,
			}

			r.Mu = updated[i][j].Mu
			r.Sigma = updated[i][j].Sigma
			pushStarRating(r, en.starRating)
			r.Ordinal = Ordinal(r.Mu, r.Sigma, StarRating(r))
			r.GamesPlayed++
			r.WinAmount += wins
			r.TotalOpponentsAmount += opponents
			r.UpdatedAt = now

			h.NewMu = r.Mu
			h.NewSigma = r.Sigma
			h.NewOrdinal = r.Ordinal
			out = append(out, h)
		}
	}
	return out
}

func (e *Engine) applyPP(id int, entries []entry, now time.Time) []domain.RatingHistory {
	pps := make([]float64, len(entries))
	previous := make([]float64, len(entries))
	ratings := make([]*domain.Rating, len(entries))
	for i, en := range entries {
		pps[i] = *en.score.PP
		ratings[i] = e.cache.Mutable(en.score.UserID, id, now)
		previous[i] = ratings[i].Ordinal
	}
	actual := ranksFromValues(pps)
	predicted := ranksFromValues(previous)

	out := make([]domain.RatingHistory, 0, len(entries))
	for i, en := range entries {
		r := ratings[i]
		h := domain.RatingHistory{
			PlayerID:      r.PlayerID,
			AttributeID:   id,
			OldMu:         r.Mu,
			OldSigma:      r.Sigma,
			OldOrdinal:    r.Ordinal,
			StarRating:    en.starRating,
			ActualRank:    actual[i],
			PredictedRank: predicted[i],
			CreatedAt:     now,
		}

		pushPP(r, pps[i])
		pushStarRating(r, en.starRating)
		r.GamesPlayed++
		r.Mu = PPTotal(r.PPValues, r.GamesPlayed)
		r.Sigma = 0
		r.Ordinal = r.Mu
		for j := range pps {
			if j != i && pps[j] < pps[i] {
				r.WinAmount++
			}
		}
		r.TotalOpponentsAmount += len(entries) - 1
		r.UpdatedAt = now

		h.NewMu = r.Mu
		h.NewSigma = r.Sigma
		h.NewOrdinal = r.Ordinal
		out = append(out, h)
	}
	return out
}
