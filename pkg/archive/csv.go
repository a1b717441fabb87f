package archive

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

// Header is the column layout shared by the archive and the pending file
var Header = []string{"postid", "username", "userid", "created_time", "code", "tags", "img_url"}

// CSVArchive appends posts to a single CSV file
type CSVArchive struct {
	path   string
	logger logger.Logger
}

// NewCSV returns a CSV archive at path. The file is created on first append.
func NewCSV(path string, log logger.Logger) *CSVArchive {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &CSVArchive{path: path, logger: log}
}

// Path returns the archive file path
func (a *CSVArchive) Path() string {
	return a.path
}

// IDs reads the postid column. A missing file is an empty archive.
func (a *CSVArchive) IDs(ctx context.Context) (map[string]struct{}, error) {
	posts, err := readPosts(a.path)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		ids[p.ID] = struct{}{}
	}
	return ids, nil
}

// Posts returns every archived post in file order
func (a *CSVArchive) Posts(ctx context.Context) ([]models.Post, error) {
	return readPosts(a.path)
}

// Append writes posts to the end of the file, writing the header first when
// the file is new. Ids already in the file are skipped.
func (a *CSVArchive) Append(ctx context.Context, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	existing, err := a.IDs(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return 0, fmt.Errorf("failed to write archive header: %w", err)
		}
	}

	written := 0
	for _, p := range posts {
		if _, dup := existing[p.ID]; dup {
			a.logger.WithField("post_id", p.ID).Debug("Post already archived")
			continue
		}
		existing[p.ID] = struct{}{}
		if err := w.Write(encodeRecord(p)); err != nil {
			return written, fmt.Errorf("failed to write post %s: %w", p.ID, err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return written, fmt.Errorf("failed to sync archive: %w", err)
	}

	a.logger.InfoWithFields("Archive appended", map[string]interface{}{
		"path":    a.path,
		"written": written,
	})
	return written, nil
}

// Close is a no-op for the CSV backend
func (a *CSVArchive) Close(ctx context.Context) error {
	return nil
}

func encodeRecord(p models.Post) []string {
	return []string{
		p.ID,
		p.Username,
		p.UserID,
		strconv.FormatInt(p.CreatedAt.Unix(), 10),
		p.Permalink,
		strings.Join(p.Tags, " "),
		p.ImageURL,
	}
}

func decodeRecord(rec []string) (models.Post, error) {
	if len(rec) != len(Header) {
		return models.Post{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(rec))
	}
	if rec[0] == "" {
		return models.Post{}, errors.New("empty postid")
	}

	created, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return models.Post{}, fmt.Errorf("invalid created_time %q: %w", rec[3], err)
	}

	return models.Post{
		ID:        rec[0],
		Username:  rec[1],
		UserID:    rec[2],
		CreatedAt: time.Unix(created, 0).UTC(),
		Permalink: rec[4],
		Tags:      strings.Fields(rec[5]),
		ImageURL:  rec[6],
	}, nil
}

func readPosts(path string) ([]models.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return decodePosts(f, path)
}

func decodePosts(r io.Reader, name string) ([]models.Post, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", name, err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("%s: unexpected header %v", name, header)
	}

	var posts []models.Post
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		p, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}
