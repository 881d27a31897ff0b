package difficulty

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/domain"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// HTTPClient talks to an external difficulty and performance service.
type HTTPClient struct {
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewHTTPClient(baseURL string, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     32,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

type performanceRequest struct {
	Attributes *domain.DifficultyAttributes `json:"attributes"`
	Mods       uint32                       `json:"mods"`
	Accuracy   float64                      `json:"accuracy"`
	MaxCombo   int                          `json:"max_combo"`
	Count300   int                          `json:"count_300"`
	Count100   int                          `json:"count_100"`
	Count50    int                          `json:"count_50"`
	CountMiss  int                          `json:"count_miss"`
}

type performanceResponse struct {
	PP *float64 `json:"pp"`
}

func (c *HTTPClient) GetDifficulty(ctx context.Context, beatmapID int64, mods match.Mods) (*domain.DifficultyAttributes, error) {
	url := fmt.Sprintf("%s/difficulty?beatmap_id=%d&mods=%d", c.baseURL, beatmapID, uint32(Relevant(mods)))
	return doJSON[domain.DifficultyAttributes](ctx, c, fasthttp.MethodGet, url, nil)
}

func (c *HTTPClient) Calculate(ctx context.Context, attrs *domain.DifficultyAttributes, score match.Score) (*float64, error) {
	if attrs == nil {
		return nil, nil
	}
	body, err := json.Marshal(performanceRequest{
		Attributes: attrs,
		Mods:       uint32(Relevant(score.Mods)),
		Accuracy:   score.Accuracy,
		MaxCombo:   score.MaxCombo,
		Count300:   score.Statistics.Count300,
		Count100:   score.Statistics.Count100,
		Count50:    score.Statistics.Count50,
		CountMiss:  score.Statistics.CountMiss,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode performance request: %w", err)
	}
	resp, err := doJSON[performanceResponse](ctx, c, fasthttp.MethodPost, c.baseURL+"/performance", body)
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.PP, nil
}

// doJSON returns (nil, nil) when the service reports the chart unsupported.
func doJSON[T any](ctx context.Context, c *HTTPClient, method, url string, body []byte) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("failed to call difficulty service: %w", err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound, fasthttp.StatusUnprocessableEntity:
		c.logger.Debug().Str("url", url).Int("status", resp.StatusCode()).Msg("chart not supported by difficulty service")
		return nil, nil
	default:
		return nil, fmt.Errorf("difficulty service error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode difficulty response: %w", err)
	}
	return &result, nil
}

// New picks the HTTP client when a service URL is configured.
func New(cfg *config.Config, logger zerolog.Logger) (Oracle, PerformanceCalculator) {
	if cfg.DifficultyURL == "" {
		logger.Warn().Msg("no difficulty service configured, pp and skillsets disabled")
		return Null{}, Null{}
	}
	c := NewHTTPClient(cfg.DifficultyURL, logger)
	return c, c
}
