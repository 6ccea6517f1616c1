package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamokeah/shamzam/internal/audioprobe"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/errors"
	"github.com/adamokeah/shamzam/internal/httpclient"
	"github.com/adamokeah/shamzam/internal/logger"
	"github.com/adamokeah/shamzam/internal/observability/metrics"
)

const (
	providerName = "audd"

	// DefaultEndpoint is the AudD recognition API.
	DefaultEndpoint = "https://api.audd.io/"

	// DefaultTimeout bounds a provider call whose context has no deadline.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20

	fragmentBaseName = "fragment"
)

// AudD error codes that mean the credentials are unusable.
const (
	auddCodeInvalidToken = 900
	auddCodeNoToken      = 901
	auddCodeQuota        = 902
)

// Config configures the AudD client.
type Config struct {
	Endpoint string
	APIToken string
	// Return lists extra AudD result sections, e.g. "apple_music,spotify".
	Return  string
	Timeout time.Duration
	// RateLimit is the maximum number of calls per second; zero disables it.
	RateLimit float64
	Burst     int
}

// AudDClient is a Recognizer backed by the AudD HTTP API. It makes exactly
// one provider call per Recognize and never retries.
type AudDClient struct {
	cfg     Config
	http    *httpclient.Client
	limiter *rate.Limiter
	log     logger.Logger
	metrics metrics.Recorder
}

var _ Recognizer = (*AudDClient)(nil)

// Option configures an AudDClient.
type Option func(*AudDClient)

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(a *AudDClient) {
		if c != nil {
			a.http = c
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(log logger.Logger) Option {
	return func(a *AudDClient) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics records provider call counts and latencies.
func WithMetrics(rec metrics.Recorder) Option {
	return func(a *AudDClient) {
		if rec != nil {
			a.metrics = rec
		}
	}
}

// NewAudDClient creates an AudD client. Empty endpoint and timeout take
// their defaults.
func NewAudDClient(cfg Config, opts ...Option) *AudDClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	a := &AudDClient{
		cfg:     cfg,
		log:     logger.NewNopLogger(),
		metrics: metrics.NopRecorder{},
	}
	if cfg.RateLimit > 0 {
		burst := max(cfg.Burst, 1)
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.http == nil {
		a.http = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}
	return a
}

type auddResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  *auddError      `json:"error"`
}

type auddError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// Recognize sends fragment to AudD.
func (a *AudDClient) Recognize(ctx context.Context, fragment codec.RawBytes) (result Result, err error) {
	if len(fragment) == 0 {
		return NoMatch(), validationError(ErrEmptyFragment)
	}

	start := time.Now()
	defer func() {
		a.metrics.RecordDuration(metrics.OpProviderRecognize, time.Since(start).Seconds())
		if err != nil {
			a.metrics.RecordOperation(metrics.OpProviderRecognize, metrics.StatusError)
			a.metrics.RecordError(metrics.OpProviderRecognize, string(errors.KindOf(err)))
			return
		}
		a.metrics.RecordOperation(metrics.OpProviderRecognize, metrics.StatusSuccess)
	}()

	if a.cfg.APIToken == "" {
		return NoMatch(), authError("audd api token is not configured")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return NoMatch(), unavailableError("recognition abandoned: %w", err)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return NoMatch(), unavailableError("audd rate limit wait: %w", err)
		}
	}

	probe := audioprobe.Probe(fragment)
	log := a.log.WithContext(ctx)
	log.Debug("sending fragment to provider",
		logger.String("provider", providerName),
		logger.Int("fragment_bytes", len(fragment)),
		logger.String("format", string(probe.Format)),
		logger.String("api_token", logger.RedactToken(a.cfg.APIToken)))

	fields := map[string]string{"api_token": a.cfg.APIToken}
	if a.cfg.Return != "" {
		fields["return"] = a.cfg.Return
	}
	resp, err := a.http.PostMultipart(ctx, a.cfg.Endpoint, fields, httpclient.FormFile{
		Field:       "file",
		Filename:    probe.Filename(fragmentBaseName),
		ContentType: probe.ContentType(),
		Data:        fragment,
	})
	if err != nil {
		return NoMatch(), unavailableError("audd request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debug("failed to close provider response body", logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NoMatch(), authError("audd rejected credentials: HTTP %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return NoMatch(), unavailableError("audd returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NoMatch(), unavailableError("reading audd response: %w", err)
	}

	result, err = parseResponse(body)
	if err != nil {
		log.Warn("provider call failed",
			logger.String("provider", providerName),
			logger.Error(err))
		return NoMatch(), err
	}

	if result.IsMatch() {
		log.Info("fragment recognized",
			logger.String("artist", result.Match.Artist),
			logger.String("title", result.Match.Title),
			logger.Duration("elapsed", time.Since(start)))
	} else {
		log.Info("fragment not recognized", logger.Duration("elapsed", time.Since(start)))
	}
	return result, nil
}

// parseResponse maps an AudD response body to a Result or a categorized error.
func parseResponse(body []byte) (Result, error) {
	var resp auddResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return NoMatch(), unavailableError("malformed audd response: %w", err)
	}

	switch resp.Status {
	case "error":
		if resp.Error == nil {
			return NoMatch(), unavailableError("audd reported an error without details")
		}
		switch resp.Error.Code {
		case auddCodeInvalidToken, auddCodeNoToken, auddCodeQuota:
			return NoMatch(), authError("audd error %d: %s", resp.Error.Code, resp.Error.Message)
		default:
			return NoMatch(), unavailableError("audd error %d: %s", resp.Error.Code, resp.Error.Message)
		}
	case "success":
	default:
		return NoMatch(), unavailableError("malformed audd response: unknown status %q", resp.Status)
	}

	trimmed := bytes.TrimSpace(resp.Result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NoMatch(), nil
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return NoMatch(), unavailableError("malformed audd result: %w", err)
	}

	artist, _ := fields["artist"].(string)
	title, _ := fields["title"].(string)
	if artist == "" || title == "" {
		return NoMatch(), unavailableError("malformed audd result: missing artist or title")
	}

	delete(fields, "artist")
	delete(fields, "title")
	return Matched(artist, title, fields), nil
}

// String implements fmt.Stringer without exposing the token.
func (a *AudDClient) String() string {
	return fmt.Sprintf("AudDClient{endpoint: %s, token: %s}", a.cfg.Endpoint, logger.RedactToken(a.cfg.APIToken))
}
