// Package watermark records, per tag, the time up to which the feed has been
// fully crawled. Each tag has its own file holding decimal unix seconds.
package watermark

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"igcrawler/pkg/logger"
	"igcrawler/pkg/storage"
)

// Log is a directory of per-tag watermark files
type Log struct {
	dir    string
	logger logger.Logger
}

// NewLog creates the watermark directory if needed
func NewLog(dir string, log logger.Logger) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watermark directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Log{dir: dir, logger: log}, nil
}

// Open returns a Log over dir without touching the filesystem
func Open(dir string, log logger.Logger) *Log {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Log{dir: dir, logger: log}
}

func (l *Log) path(tag string) string {
	return filepath.Join(l.dir, tag)
}

// Ensure creates an empty entry for every tag that has none
func (l *Log) Ensure(tags []string) error {
	for _, tag := range tags {
		f, err := os.OpenFile(l.path(tag), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create watermark for %s: %w", tag, err)
		}
		f.Close()
		l.logger.DebugWithFields("Watermark created", map[string]interface{}{"tag": tag})
	}
	return nil
}

// Read returns the tag's watermark. A missing, empty or unparsable entry yields
// the zero time, meaning everything in the feed is new.
func (l *Log) Read(tag string) time.Time {
	data, err := os.ReadFile(l.path(tag))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.WithError(err).WarnWithFields("Failed to read watermark", map[string]interface{}{"tag": tag})
		}
		return time.Time{}
	}

	t, err := Parse(string(data))
	if err != nil {
		l.logger.WithError(err).WarnWithFields("Ignoring corrupt watermark", map[string]interface{}{"tag": tag})
		return time.Time{}
	}
	return t
}

// Write replaces the tag's watermark atomically
func (l *Log) Write(tag string, t time.Time) error {
	err := storage.WriteFileAtomic(l.path(tag), 0644, func(w io.Writer) error {
		_, err := io.WriteString(w, Format(t))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write watermark for %s: %w", tag, err)
	}

	l.logger.DebugWithFields("Watermark saved", map[string]interface{}{
		"tag":       tag,
		"watermark": t.Unix(),
	})
	return nil
}

// maxSeconds is 9999-12-31T23:59:59Z; later values are treated as corrupt
const maxSeconds = 253402300799

// Parse decodes a watermark file body. Fractional seconds are accepted and
// truncated. An empty body is the zero time.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid watermark %q: %w", s, err)
	}
	if math.IsNaN(secs) || secs > maxSeconds {
		return time.Time{}, fmt.Errorf("watermark %q out of range", s)
	}
	if secs <= 0 {
		return time.Time{}, nil
	}
	return time.Unix(int64(secs), 0), nil
}

// Format encodes t as decimal unix seconds; the zero time encodes as "0"
func Format(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

// Dir returns the watermark directory
func (l *Log) Dir() string {
	return l.dir
}
