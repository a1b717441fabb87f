package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"igcrawler/internal/crawler"
	"igcrawler/internal/downloader"
	"igcrawler/internal/merger"
	"igcrawler/internal/workset"
	"igcrawler/pkg/archive"
	"igcrawler/pkg/config"
	"igcrawler/pkg/feed"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/retry"
	"igcrawler/pkg/storage"
	"igcrawler/pkg/tags"
	"igcrawler/pkg/watermark"
)

// Scraper wires the crawl stages together
type Scraper struct {
	config  *config.Config
	source  feed.Source
	images  downloader.ImageSource
	archive archive.Archive
	pause   ratelimit.Limiter
	logger  logger.Logger
	now     func() time.Time
	// open is used when no archive was supplied; the run closes what it opens
	open func(ctx context.Context, cfg config.ArchiveConfig, log logger.Logger) (archive.Archive, error)
}

// Option customises a Scraper
type Option func(*Scraper)

// WithSource replaces the Instagram feed client
func WithSource(src feed.Source) Option {
	return func(s *Scraper) { s.source = src }
}

// WithImageSource replaces the image HTTP client
func WithImageSource(src downloader.ImageSource) Option {
	return func(s *Scraper) { s.images = src }
}

// WithArchive uses an already opened archive instead of opening cfg.Archive.
// The caller keeps ownership and closes it.
func WithArchive(a archive.Archive) Option {
	return func(s *Scraper) { s.archive = a }
}

// WithPause replaces the pause taken after every image attempt
func WithPause(l ratelimit.Limiter) Option {
	return func(s *Scraper) { s.pause = l }
}

// WithClock replaces time.Now for crawl start times
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper. Without options it talks to Instagram using the
// session, rate limit and retry settings from cfg.
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Scraper{
		config: cfg,
		logger: log,
		now:    time.Now,
		open:   archive.Open,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.source == nil {
		s.source = instagram.NewClient(cfg.Instagram, log,
			instagram.WithLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)),
			instagram.WithRetry(retry.FromConfig(cfg.Retry, log)),
		)
	}
	if s.images == nil {
		s.images = instagram.NewImageClient(cfg.Download, log)
	}
	if s.pause == nil {
		s.pause = ratelimit.NewFixedPause(cfg.Download.Pause)
	}
	return s
}

// Summary describes a finished run
type Summary struct {
	RunID      string
	Tags       []string
	Results    []*crawler.Result
	Collected  int
	Pending    int
	Skipped    int
	Downloaded int
	Deferred   int
	Missing    int
	Merge      *merger.Summary
	// Images is the number of files in the image directory after the run
	Images   int
	Duration time.Duration
}

// Run performs one crawl. It returns an error for bootstrap failures, archive
// failures and cancellation; per-post and per-tag problems are logged and
// reflected in the summary.
func (s *Scraper) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", sum.RunID)

	tagList, err := tags.Load(s.config.Crawl.TagFile, log)
	if err != nil {
		return nil, err
	}
	sum.Tags = tagList

	marks, err := watermark.NewLog(s.config.Paths.WatermarkDir, log)
	if err != nil {
		return nil, err
	}
	if err := marks.Ensure(tagList); err != nil {
		return nil, err
	}

	store, err := storage.NewManager(s.config.Paths.StagingDir, s.config.Paths.ImageDir)
	if err != nil {
		return nil, err
	}

	arch := s.archive
	if arch == nil {
		arch, err = s.open(ctx, s.config.Archive, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		defer func() {
			if err := arch.Close(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to close archive")
			}
		}()
	}

	if leftover, err := store.StagedFiles(); err != nil {
		log.WithError(err).Warn("Failed to list staging directory")
	} else if len(leftover) > 0 {
		log.WithField("count", len(leftover)).Warn("Staging directory holds files from an unfinished run")
	}

	logger.LogComponentStart(log, "run", map[string]interface{}{
		"tags":   len(tagList),
		"goal":   s.config.Crawl.Goal,
		"images": store.ImageCount(),
	})

	set, err := s.crawl(ctx, log, tagList, marks, sum)
	if err != nil {
		return nil, err
	}

	pending, err := archive.LoadPending(s.config.Paths.PendingFile)
	if err != nil {
		return nil, err
	}
	sum.Pending = len(pending)
	set.AddAll(pending)

	archived, err := arch.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive ids: %w", err)
	}
	work := set.Without(func(p models.Post) bool {
		_, ok := archived[p.ID]
		return ok
	})
	sum.Skipped = set.Len() - work.Len()
	if sum.Skipped > 0 {
		log.WithField("count", sum.Skipped).Info("Skipping posts already archived")
	}

	fetcher := downloader.NewFetcher(s.images, store, s.pause, log)
	fetcher.SetProgressEvery(s.config.Crawl.ProgressEvery)
	report, err := fetcher.Fetch(ctx, work.Posts())
	if err != nil {
		log.WithError(err).Warn("Run aborted during download, nothing merged")
		return nil, err
	}
	sum.Downloaded = len(report.Downloaded)
	sum.Deferred = len(report.Deferred)
	sum.Missing = len(report.Missing)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Downloaded posts stay pending until the merge has archived them.
	owed := make([]models.Post, 0, len(report.Deferred)+len(report.Downloaded))
	owed = append(owed, report.Deferred...)
	for _, d := range report.Downloaded {
		owed = append(owed, d.Post)
	}
	if err := archive.SavePending(s.config.Paths.PendingFile, owed); err != nil {
		return nil, fmt.Errorf("failed to save pending posts: %w", err)
	}

	sum.Merge, err = merger.New(arch, store, marks, log).Merge(ctx, report.Downloaded, sum.Results)
	if err != nil {
		log.WithError(err).WithField("pending", len(owed)).Warn("Merge failed, downloads kept pending")
		return nil, err
	}

	if err := archive.SavePending(s.config.Paths.PendingFile, report.Deferred); err != nil {
		return nil, fmt.Errorf("failed to save pending posts: %w", err)
	}
	sum.Images = store.ImageCount()

	sum.Duration = time.Since(start)
	logger.LogComponentStop(log, "run", map[string]interface{}{
		"collected":  sum.Collected,
		"pending":    sum.Pending,
		"downloaded": sum.Downloaded,
		"deferred":   sum.Deferred,
		"missing":    sum.Missing,
		"archived":   sum.Merge.Archived,
		"duration":   sum.Duration,
	})
	return sum, nil
}

// crawl visits tags in order and collects their posts into one working set
func (s *Scraper) crawl(ctx context.Context, log logger.Logger, tagList []string, marks *watermark.Log, sum *Summary) (*workset.Set, error) {
	driver := crawler.NewDriver(s.source, log,
		crawler.WithClock(s.now),
		crawler.WithProgressEvery(s.config.Crawl.ProgressEvery),
	)

	set := workset.New()
	for _, tag := range tagList {
		res, err := driver.Crawl(ctx, tag, marks.Read(tag), s.config.Crawl.Goal)
		if err != nil {
			log.WithError(err).Warn("Run aborted during crawl, nothing merged")
			return nil, err
		}
		sum.Results = append(sum.Results, res)
		sum.Collected += set.AddAll(res.Posts)
	}
	return set, nil
}
