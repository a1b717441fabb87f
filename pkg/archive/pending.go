package archive

import (
	"encoding/csv"
	"fmt"
	"io"

	"igcrawler/pkg/models"
	"igcrawler/pkg/storage"
)

// LoadPending reads the posts whose image download was deferred by an earlier
// run. A missing file yields no posts.
func LoadPending(path string) ([]models.Post, error) {
	posts, err := readPosts(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending posts: %w", err)
	}
	return posts, nil
}

// SavePending replaces the pending file with posts. An empty slice leaves a
// header-only file.
func SavePending(path string, posts []models.Post) error {
	return storage.WriteFileAtomic(path, 0644, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Header); err != nil {
			return err
		}
		for _, p := range posts {
			if err := cw.Write(encodeRecord(p)); err != nil {
				return fmt.Errorf("failed to write pending post %s: %w", p.ID, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}
