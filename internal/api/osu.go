package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"osu-mp-tracker/internal/config"
	"osu-mp-tracker/internal/constants"
	"osu-mp-tracker/internal/match"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the upstream no longer knows a session.
var ErrNotFound = errors.New("upstream: not found")

const frameLimit = 100

// Upstream is the multiplayer history source.
type Upstream interface {
	// GetSessionsSince lists sessions with an id greater than afterID,
	// oldest first. An empty result means nothing new yet.
	GetSessionsSince(ctx context.Context, afterID int64) ([]SessionSummary, error)
	// GetFrame returns the events after cursor. Cursor 0 fetches from the
	// start of the session.
	GetFrame(ctx context.Context, sessionID, cursor int64) (*FrameResponse, error)
}

type SessionSummary struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// FrameResponse keeps the raw body next to its decoded form so the exact
// bytes can be archived.
type FrameResponse struct {
	Raw      []byte
	Snapshot *match.Snapshot
}

type sessionsResponse struct {
	Matches []SessionSummary `json:"matches"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateLimitReporter is implemented by upstreams that track the quota headers.
type RateLimitReporter interface {
	GetRateLimitInfo() RateLimitInfo
}

type OsuClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *fasthttp.Client
	limiter      *rate.Limiter
	logger       zerolog.Logger

	retryBase time.Duration
	retryCap  time.Duration

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

func NewOsuClient(cfg *config.Config, logger zerolog.Logger) *OsuClient {
	every := cfg.UpstreamInterval / time.Duration(cfg.UpstreamRequests)
	return &OsuClient{
		baseURL:      cfg.OsuAPIURL,
		clientID:     cfg.OsuClientID,
		clientSecret: cfg.OsuClientSecret,
		client: &fasthttp.Client{
			MaxConnsPerHost:     32,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter:   rate.NewLimiter(rate.Every(every), cfg.UpstreamRequests),
		logger:    logger,
		retryBase: constants.UpstreamRetryBase,
		retryCap:  constants.UpstreamRetryCap,
		rateLimit: RateLimitInfo{
			Limit:     cfg.UpstreamRequests,
			Remaining: cfg.UpstreamRequests,
			UpdatedAt: time.Now(),
		},
	}
}

func NewUpstream(c *OsuClient) Upstream { return c }

func (c *OsuClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *OsuClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *OsuClient) GetSessionsSince(ctx context.Context, afterID int64) ([]SessionSummary, error) {
	q := url.Values{}
	q.Set("sort", "id_asc")
	q.Set("limit", "50")
	q.Set("cursor[match_id]", strconv.FormatInt(afterID, 10))
	resp, _, err := doRequest[sessionsResponse](ctx, c, c.baseURL+"/api/v2/matches?"+q.Encode())
	if err != nil {
		return nil, err
	}
	// The cursor is exclusive upstream, but guard against overlap anyway.
	out := resp.Matches[:0]
	for _, m := range resp.Matches {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *OsuClient) GetFrame(ctx context.Context, sessionID, cursor int64) (*FrameResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(frameLimit))
	// Without after the endpoint returns the newest events, not the first.
	q.Set("after", strconv.FormatInt(cursor, 10))
	endpoint := fmt.Sprintf("%s/api/v2/matches/%d?%s", c.baseURL, sessionID, q.Encode())
	_, raw, err := doRequest[json.RawMessage](ctx, c, endpoint)
	if err != nil {
		return nil, err
	}
	snap, err := match.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return &FrameResponse{Raw: raw, Snapshot: snap}, nil
}

// accessToken returns a cached client-credentials token, refreshing it
// shortly before it expires.
func (c *OsuClient) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > constants.TokenRefreshSlack {
		return c.token, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "public")

	req.SetRequestURI(c.baseURL + "/oauth/token")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(form.Encode())

	if err := c.do(ctx, req, resp); err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode())
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug().Time("expires_at", c.tokenExpiry).Msg("upstream token refreshed")
	return c.token, nil
}

func (c *OsuClient) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

func (c *OsuClient) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if deadline, ok := ctx.Deadline(); ok {
		return c.client.DoDeadline(req, resp, deadline)
	}
	return c.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
}

// doRequest performs an authenticated GET. Transport errors, 401, 429 and
// 5xx responses are retried with capped exponential backoff until ctx ends.
// It returns the decoded body together with a copy of the raw bytes.
func doRequest[T any](ctx context.Context, client *OsuClient, endpoint string) (*T, []byte, error) {
	backoff := retry.WithCappedDuration(client.retryCap, retry.NewExponential(client.retryBase))
	backoff = retry.WithJitterPercent(10, backoff)

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := client.accessToken(ctx)
		if err != nil {
			client.logger.Warn().Err(err).Msg("upstream auth failed, retrying")
			return retry.RetryableError(err)
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(endpoint)
		req.Header.SetMethod(fasthttp.MethodGet)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		if err := client.do(ctx, req, resp); err != nil {
			client.logger.Warn().Err(err).Str("url", endpoint).Msg("upstream request failed, retrying")
			return retry.RetryableError(err)
		}
		client.updateRateLimit(resp)

		status := resp.StatusCode()
		switch {
		case status == fasthttp.StatusOK:
			body = append([]byte(nil), resp.Body()...)
			return nil
		case status == fasthttp.StatusNotFound:
			return ErrNotFound
		case status == fasthttp.StatusUnauthorized:
			client.invalidateToken()
			return retry.RetryableError(fmt.Errorf("API error: %d", status))
		case status == fasthttp.StatusTooManyRequests || status >= 500:
			client.logger.Warn().Int("status", status).Str("url", endpoint).Msg("upstream unavailable, retrying")
			return retry.RetryableError(fmt.Errorf("API error: %d", status))
		default:
			return fmt.Errorf("API error: %d", status)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, body, nil
}
