// Package scraper runs one complete crawl.
//
// A run loads the tag list, crawls every tag newer than its watermark into a
// working set, adds the posts deferred by the previous run, downloads their
// images into staging, rewrites the pending file, and finally merges the
// downloads into the archive and advances the watermarks.
//
//	s := scraper.New(cfg, log)
//	summary, err := s.Run(ctx)
//
// Cancelling ctx at any point before the merge leaves the archive, the image
// directory and every watermark untouched.
package scraper
