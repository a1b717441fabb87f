package instagram

import (
	"context"
	"io"
	"net/http"

	"igcrawler/pkg/config"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
)

// ImageClient fetches image bytes. It never retries; a failed image is
// deferred to the next run by the caller.
type ImageClient struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

// NewImageClient creates an image client from the download config section
func NewImageClient(cfg config.DownloadConfig, log logger.Logger) *ImageClient {
	if log == nil {
		log = logger.GetLogger()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	return &ImageClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  ua,
		logger:     log,
	}
}

// Open starts downloading url. On success the caller must close the body.
// A 404 yields an ErrorTypeNotFound error; any other non-200 status or
// transport failure yields a different typed error.
func (c *ImageClient) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		apiErr := errs.FromStatus(resp.StatusCode)
		if apiErr == nil {
			apiErr = errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
		}
		c.logger.DebugWithFields("Image request rejected", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return nil, apiErr
	}

	return resp.Body, nil
}
