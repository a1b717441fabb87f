// Package merger commits a run: it archives newly downloaded posts, promotes
// their staged images and finally advances the watermarks.
package merger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igcrawler/internal/crawler"
	"igcrawler/internal/downloader"
	"igcrawler/pkg/archive"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/storage"
)

// ImageStore moves staged images into the permanent directory
type ImageStore interface {
	Promote(name string) error
	Discard(name string) error
}

// WatermarkStore reads and persists a tag's watermark
type WatermarkStore interface {
	Read(tag string) time.Time
	Write(tag string, t time.Time) error
}

// Summary counts what a merge did
type Summary struct {
	Archived       int
	Duplicates     int
	Promoted       int
	PromoteFailed  int
	Watermarks     int
	WatermarksHeld int
}

// Merger applies a run's downloads to durable state
type Merger struct {
	archive    archive.Archive
	images     ImageStore
	watermarks WatermarkStore
	logger     logger.Logger
}

// New creates a Merger
func New(a archive.Archive, images ImageStore, watermarks WatermarkStore, log logger.Logger) *Merger {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Merger{
		archive:    a,
		images:     images,
		watermarks: watermarks,
		logger:     log.WithField("component", "merger"),
	}
}

// Merge filters downloaded posts against the archive and each other, appends
// the survivors, promotes their images and writes the watermark of every
// result that may advance. Watermarks never move backwards. An archive failure
// returns before any image is promoted or watermark written.
func (m *Merger) Merge(ctx context.Context, downloaded []downloader.Downloaded, results []*crawler.Result) (*Summary, error) {
	sum := &Summary{}

	existing, err := m.archive.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive ids: %w", err)
	}

	fresh, dupes := Filter(downloaded, existing)
	sum.Duplicates = len(dupes)

	posts := make([]models.Post, len(fresh))
	for i, d := range fresh {
		posts[i] = d.Post
	}

	sum.Archived, err = m.archive.Append(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("failed to append to archive: %w", err)
	}

	for _, d := range fresh {
		if err := m.images.Promote(d.File); err != nil {
			sum.PromoteFailed++
			log := m.logger.WithError(err).WithField("file", d.File)
			if errors.Is(err, storage.ErrExists) {
				log.Warn("Image already exists, keeping staged copy")
			} else {
				log.Error("Failed to promote image")
			}
			continue
		}
		sum.Promoted++
	}

	kept := make(map[string]struct{}, len(fresh))
	for _, d := range fresh {
		kept[d.File] = struct{}{}
	}
	for _, d := range dupes {
		if _, ok := kept[d.File]; ok {
			continue
		}
		if err := m.images.Discard(d.File); err != nil {
			m.logger.WithError(err).WithField("file", d.File).Warn("Failed to discard duplicate image")
		}
	}

	for _, res := range results {
		if !res.AdvancesWatermark() {
			sum.WatermarksHeld++
			m.logger.WithField("tag", res.Tag).Warn("Watermark held after feed failure")
			continue
		}
		if prev := m.watermarks.Read(res.Tag); !res.StartedAt.After(prev) {
			m.logger.WithField("tag", res.Tag).DebugWithFields("Watermark not advanced", map[string]interface{}{
				"stored":  prev.Unix(),
				"started": res.StartedAt.Unix(),
			})
			continue
		}
		if err := m.watermarks.Write(res.Tag, res.StartedAt); err != nil {
			m.logger.WithError(err).WithField("tag", res.Tag).Error("Failed to write watermark")
			continue
		}
		sum.Watermarks++
	}

	m.logger.InfoWithFields("Merge complete", map[string]interface{}{
		"archived":        sum.Archived,
		"duplicates":      sum.Duplicates,
		"promoted":        sum.Promoted,
		"promote_failed":  sum.PromoteFailed,
		"watermarks":      sum.Watermarks,
		"watermarks_held": sum.WatermarksHeld,
	})
	return sum, nil
}

// Filter splits downloaded into posts not yet archived, keeping the first of
// any repeated id, and the rest.
func Filter(downloaded []downloader.Downloaded, archived map[string]struct{}) (fresh, dupes []downloader.Downloaded) {
	seen := make(map[string]struct{}, len(downloaded))
	for _, d := range downloaded {
		if _, ok := archived[d.Post.ID]; ok {
			dupes = append(dupes, d)
			continue
		}
		if _, ok := seen[d.Post.ID]; ok {
			dupes = append(dupes, d)
			continue
		}
		seen[d.Post.ID] = struct{}{}
		fresh = append(fresh, d)
	}
	return fresh, dupes
}
