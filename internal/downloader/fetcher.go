// Package downloader fetches post images one at a time and sorts each post
// into downloaded, permanently missing, or deferred.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/ratelimit"
)

// DefaultExt is used when an image URL has no usable extension
const DefaultExt = "jpg"

// Outcome of a single image attempt
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeMissing
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeMissing:
		return "missing"
	case OutcomeDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ImageSource opens image bodies. A 404 must surface as an errors.ErrorTypeNotFound error.
type ImageSource interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// ImageStore stages image bytes under a post id
type ImageStore interface {
	SaveStaged(r io.Reader, id, ext string) (string, error)
}

// Downloaded pairs a post with its staged image file name
type Downloaded struct {
	Post models.Post
	File string
}

// Report is the result of fetching a batch
type Report struct {
	Downloaded []Downloaded
	Deferred   []models.Post
	Missing    []models.Post
}

// Fetcher downloads images sequentially with a pause after every attempt
type Fetcher struct {
	source        ImageSource
	store         ImageStore
	pause         ratelimit.Limiter
	logger        logger.Logger
	progressEvery int
}

// NewFetcher creates a Fetcher. pause runs after every attempt; nil disables it.
func NewFetcher(source ImageSource, store ImageStore, pause ratelimit.Limiter, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Fetcher{
		source:        source,
		store:         store,
		pause:         pause,
		logger:        log,
		progressEvery: 500,
	}
}

// SetProgressEvery sets how many downloads separate progress lines
func (f *Fetcher) SetProgressEvery(n int) {
	if n > 0 {
		f.progressEvery = n
	}
}

// Fetch attempts every post once. On cancellation it returns the partial
// report together with the context error.
func (f *Fetcher) Fetch(ctx context.Context, posts []models.Post) (*Report, error) {
	report := &Report{}
	start := time.Now()

	logger.LogComponentStart(f.logger, "downloader", map[string]interface{}{"posts": len(posts)})

	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, file, err := f.fetchOne(ctx, p)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		log := f.logger.WithFields(map[string]interface{}{
			"post_id": p.ID,
			"outcome": outcome.String(),
		})
		switch outcome {
		case OutcomeDownloaded:
			report.Downloaded = append(report.Downloaded, Downloaded{Post: p, File: file})
			log.Debug("Image downloaded")
			if len(report.Downloaded)%f.progressEvery == 0 {
				f.logger.InfoWithFields("Download progress", map[string]interface{}{
					"downloaded": len(report.Downloaded),
					"total":      len(posts),
				})
			}
		case OutcomeMissing:
			report.Missing = append(report.Missing, p)
			log.Info("Image gone, dropping post")
		case OutcomeDeferred:
			report.Deferred = append(report.Deferred, p)
			log.WithError(err).WarnWithFields("Image deferred to next run", map[string]interface{}{
				"url": p.ImageURL,
			})
		}

		if f.pause != nil {
			if err := f.pause.Wait(ctx); err != nil {
				return report, err
			}
		}
	}

	logger.LogComponentStop(f.logger, "downloader", map[string]interface{}{
		"downloaded": len(report.Downloaded),
		"deferred":   len(report.Deferred),
		"missing":    len(report.Missing),
		"duration":   time.Since(start),
	})
	return report, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, p models.Post) (Outcome, string, error) {
	body, err := f.source.Open(ctx, p.ImageURL)
	if err != nil {
		if errs.IsNotFound(err) {
			return OutcomeMissing, "", err
		}
		return OutcomeDeferred, "", err
	}
	defer body.Close()

	file, err := f.store.SaveStaged(body, p.ID, ExtFromURL(p.ImageURL))
	if err != nil {
		return OutcomeDeferred, "", err
	}
	return OutcomeDownloaded, file, nil
}

// ExtFromURL returns the lower-case extension of the URL's path, ignoring the
// query string, or DefaultExt when there is none.
func ExtFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultExt
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" || len(ext) > 5 {
		return DefaultExt
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return DefaultExt
		}
	}
	return ext
}
