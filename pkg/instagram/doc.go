// Package instagram is the hashtag feed adapter for Instagram's web JSON endpoints.
//
// Client implements feed.Source: each feed walks the tag's media pages newest
// first, and each item fetches its post detail on demand. Page and detail
// requests share one rate limiter and retry transient failures.
//
//	client := instagram.NewClient(cfg.Instagram, log,
//	    instagram.WithLimiter(ratelimit.NewTokenBucket(30, 1)),
//	    instagram.WithRetry(retry.FromConfig(cfg.Retry, log)))
//	client.SetSession(sessionID, csrfToken)
//
// ImageClient performs the plain image GETs used by the downloader.
package instagram
