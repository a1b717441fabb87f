// Package retry retries transient failures of feed page requests with backoff.
//
//	cfg := retry.FromConfig(cfg.Retry, log)
//	page, err := retry.DoValue(ctx, cfg, func(ctx context.Context) (*Page, error) {
//		return client.fetchPage(ctx, tag, cursor)
//	})
//
// Only errors classified as retryable by pkg/errors are retried. Rate-limit
// errors switch to a slower backoff curve. Context cancellation stops waiting
// immediately.
package retry
