package scraper

import (
	"fmt"
	"time"

	"igcrawler/pkg/archive"
	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/tags"
	"igcrawler/pkg/watermark"
)

// TagStatus is one tag's watermark
type TagStatus struct {
	Tag       string
	Watermark time.Time
}

// Status is a read-only view of the crawl state on disk
type Status struct {
	Tags    []TagStatus
	Pending int
}

// ReadStatus reports the watermark of every listed tag and the number of
// pending posts. It creates nothing on disk.
func ReadStatus(cfg *config.Config, log logger.Logger) (*Status, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	tagList, err := tags.Load(cfg.Crawl.TagFile, log)
	if err != nil {
		return nil, err
	}

	marks := watermark.Open(cfg.Paths.WatermarkDir, log)
	st := &Status{}
	for _, tag := range tagList {
		st.Tags = append(st.Tags, TagStatus{Tag: tag, Watermark: marks.Read(tag)})
	}

	pending, err := archive.LoadPending(cfg.Paths.PendingFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending file: %w", err)
	}
	st.Pending = len(pending)
	return st, nil
}
