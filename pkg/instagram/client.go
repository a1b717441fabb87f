package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"igcrawler/pkg/config"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/retry"
)

// Client talks to Instagram's JSON endpoints
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
	limiter    ratelimit.Limiter
	retry      retry.Config
}

// Option customises a Client
type Option func(*Client)

// WithLimiter throttles every page and detail request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for page and detail requests
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a client from the instagram config section
func NewClient(cfg config.InstagramConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	base := cfg.BaseURL
	if base == "" {
		base = BaseURL
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		headers: map[string]string{
			"User-Agent":       cfg.UserAgent,
			"Accept":           "application/json",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      "936619743392459",
			"X-Requested-With": "XMLHttpRequest",
		},
		baseURL: base,
		logger:  log,
		retry:   retry.Config{MaxAttempts: 1, Logger: log},
	}

	for _, opt := range opts {
		opt(c)
	}

	if cfg.SessionID != "" {
		c.SetSession(cfg.SessionID, cfg.CSRFToken)
	}
	return c
}

// SetSession forwards an existing browser session as cookies
func (c *Client) SetSession(sessionID, csrfToken string) {
	cookies := []string{"sessionid=" + sessionID}
	if csrfToken != "" {
		cookies = append(cookies, "csrftoken="+csrfToken)
		c.headers["X-CSRFToken"] = csrfToken
	}
	c.headers["Cookie"] = strings.Join(cookies, "; ")
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// GetJSON waits for the limiter, performs a GET and decodes the JSON body
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("Failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

func (c *Client) checkResponseStatus(resp *http.Response) error {
	apiErr := errs.FromStatus(resp.StatusCode)
	if apiErr == nil {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	switch apiErr.Type {
	case errs.ErrorTypeServerError, errs.ErrorTypeUnknown:
		c.logger.ErrorWithFields("Unexpected response status", fields)
	default:
		c.logger.WarnWithFields("Request rejected", fields)
	}
	return apiErr
}

// fetchJSON decodes url into a new T, retrying transient failures
func fetchJSON[T any](ctx context.Context, c *Client, url string) (*T, error) {
	return retry.DoValue(ctx, c.retry, func(ctx context.Context) (*T, error) {
		var v T
		if err := c.GetJSON(ctx, url, &v); err != nil {
			return nil, err
		}
		return &v, nil
	})
}

// FetchTagPage fetches one page of a hashtag feed. An empty cursor fetches the newest page.
func (c *Client) FetchTagPage(ctx context.Context, tag, cursor string) (*MediaConnection, error) {
	resp, err := fetchJSON[TagResponse](ctx, c, TagFeedURL(c.baseURL, tag, cursor))
	if err != nil {
		return nil, err
	}
	if resp.RequiresToLogin {
		return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "login required to read #%s", tag)
	}

	page := resp.GraphQL.Hashtag.EdgeHashtagToMedia
	c.logger.DebugWithFields("Fetched tag page", map[string]interface{}{
		"tag":      tag,
		"items":    len(page.Edges),
		"has_next": page.PageInfo.HasNextPage,
	})
	return &page, nil
}

// FetchPost fetches the full record of a post by shortcode
func (c *Client) FetchPost(ctx context.Context, shortcode string) (*models.Media, error) {
	resp, err := fetchJSON[PostResponse](ctx, c, PostDetailURL(c.baseURL, shortcode))
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", shortcode, err)
	}
	if resp.RequiresToLogin {
		return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "login required to read post %s", shortcode)
	}
	if resp.GraphQL.ShortcodeMedia == nil {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "post %s: response has no media", shortcode)
	}
	return resp.GraphQL.ShortcodeMedia, nil
}
