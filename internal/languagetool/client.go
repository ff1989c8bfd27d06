// Package languagetool is a client for the LanguageTool HTTP API.
package languagetool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/time/rate"

	"grammarls/internal/annotate"
)

var log = commonlog.GetLogger("grammarls.languagetool")

// Default configuration values.
const (
	DefaultBaseURL           = "http://127.0.0.1:8081"
	DefaultLanguage          = "auto"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 10
)

var ErrStatus = errors.New("languagetool returned an error status")

type Config struct {
	BaseURL           string
	Language          string
	MotherTongue      string
	EnabledRules      []string
	DisabledRules     []string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cfg     Config
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:     cfg,
	}
}

// Check submits one batch. It waits for the rate limiter first.
func (c *Client) Check(ctx context.Context, batch annotate.Batch) (*Response, error) {
	data, err := batch.Data()
	if err != nil {
		return nil, fmt.Errorf("encode annotation: %w", err)
	}

	form := url.Values{}
	form.Set("language", c.cfg.Language)
	form.Set("data", data)
	if c.cfg.MotherTongue != "" {
		form.Set("motherTongue", c.cfg.MotherTongue)
	}
	if len(c.cfg.EnabledRules) > 0 {
		form.Set("enabledRules", strings.Join(c.cfg.EnabledRules, ","))
	}
	if len(c.cfg.DisabledRules) > 0 {
		form.Set("disabledRules", strings.Join(c.cfg.DisabledRules, ","))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.cfg.BaseURL+"/v2/check",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w (status %d): %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	log.Debugf("checked %d units in %s: %d matches", batch.Length, time.Since(start), len(out.Matches))
	return &out, nil
}
