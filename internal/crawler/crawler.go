// Package crawler walks one tag's feed from newest to oldest and collects the
// posts created after the tag's watermark.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igcrawler/internal/normalize"
	"igcrawler/pkg/feed"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

// State of a crawl
type State int

const (
	StateScanning State = iota
	StateDone
)

// StopReason records why a crawl reached StateDone
type StopReason int

const (
	// StopWatermark: a post at or before the watermark was reached
	StopWatermark StopReason = iota
	// StopGoal: the per-tag goal was collected
	StopGoal
	// StopExhausted: the feed ran out
	StopExhausted
	// StopFeedError: the feed failed before reaching the watermark
	StopFeedError
)

func (r StopReason) String() string {
	switch r {
	case StopWatermark:
		return "watermark"
	case StopGoal:
		return "goal"
	case StopExhausted:
		return "exhausted"
	case StopFeedError:
		return "feed_error"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Result is the outcome of crawling one tag
type Result struct {
	Tag   string
	Posts []models.Post
	// StartedAt is the crawl start time truncated to seconds; it becomes the
	// tag's new watermark once the run is persisted.
	StartedAt time.Time
	Reason    StopReason
	// Err is the feed error behind StopFeedError
	Err     error
	Skipped int
	// LastSeen is the creation time of the last post examined
	LastSeen time.Time
}

// AdvancesWatermark reports whether the tag's watermark may move to StartedAt.
// A feed failure leaves part of the window unseen, so it does not.
func (r *Result) AdvancesWatermark() bool {
	return r.Reason != StopFeedError
}

// Driver runs tag crawls against a feed source
type Driver struct {
	source        feed.Source
	logger        logger.Logger
	now           func() time.Time
	progressEvery int
}

// Option customises a Driver
type Option func(*Driver)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithProgressEvery sets how many collected posts separate progress lines
func WithProgressEvery(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.progressEvery = n
		}
	}
}

// NewDriver creates a Driver
func NewDriver(source feed.Source, log logger.Logger, opts ...Option) *Driver {
	if log == nil {
		log = logger.NewNopLogger()
	}
	d := &Driver{
		source:        source,
		logger:        log,
		now:           time.Now,
		progressEvery: 500,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Crawl collects posts of tag newer than watermark, newest first. A goal of 0
// means no limit. Unusable items are logged and skipped. The only error
// returned is context cancellation; feed failures end the crawl with StopFeedError.
func (d *Driver) Crawl(ctx context.Context, tag string, watermark time.Time, goal int) (*Result, error) {
	res := &Result{
		Tag:       tag,
		StartedAt: d.now().Truncate(time.Second),
	}
	log := d.logger.WithField("tag", tag)

	log.InfoWithFields("Crawl started", map[string]interface{}{
		"watermark": watermarkField(watermark),
		"goal":      goal,
	})

	f, err := d.source.Open(ctx, tag)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.fail(log, res, err)
		return res, nil
	}
	defer f.Close()

	seen := make(map[string]struct{})
	state := StateScanning

	for state == StateScanning {
		item, err := f.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, feed.ErrExhausted) {
				res.Reason = StopExhausted
			} else {
				d.fail(log, res, err)
			}
			state = StateDone
			continue
		}

		media, err := item.Detail(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Skipped++
			log.WithError(err).WarnWithFields("Skipping post: detail unavailable", map[string]interface{}{
				"code": item.Code(),
			})
			continue
		}

		post, err := normalize.Post(media)
		if err != nil {
			res.Skipped++
			log.WithError(err).DebugWithFields("Skipping post", map[string]interface{}{
				"code": item.Code(),
			})
			continue
		}

		res.LastSeen = post.CreatedAt
		if !post.CreatedAt.After(watermark) {
			res.Reason = StopWatermark
			state = StateDone
			continue
		}

		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		res.Posts = append(res.Posts, post)

		if len(res.Posts)%d.progressEvery == 0 {
			logger.LogTagProgress(log, tag, len(res.Posts), post.CreatedAt.Format(time.RFC3339))
		}

		if goal > 0 && len(res.Posts) >= goal {
			res.Reason = StopGoal
			state = StateDone
		}
	}

	fields := map[string]interface{}{
		"collected": len(res.Posts),
		"skipped":   res.Skipped,
		"reason":    res.Reason.String(),
	}
	if !res.LastSeen.IsZero() {
		fields["last_seen"] = res.LastSeen.Format(time.RFC3339)
	}
	log.InfoWithFields("Crawl finished", fields)

	return res, nil
}

func (d *Driver) fail(log logger.Logger, res *Result, err error) {
	res.Reason = StopFeedError
	res.Err = err
	log.WithError(err).WarnWithFields("Feed failed, watermark will not advance", map[string]interface{}{
		"collected": len(res.Posts),
	})
}

func watermarkField(t time.Time) interface{} {
	if t.IsZero() {
		return "none"
	}
	return t.Format(time.RFC3339)
}
