package feed

import (
	"context"
	"fmt"
	"sync"

	"igcrawler/pkg/models"
)

// MemorySource serves fixed post lists per tag. It backs dry runs and tests.
type MemorySource struct {
	mu    sync.Mutex
	posts map[string][]*models.Media
	// FailAfter makes a tag's feed fail with an error after that many items
	FailAfter map[string]int
	// DetailErrors maps a shortcode to an error returned by its Detail call
	DetailErrors map[string]error
	opened       map[string]int
}

// NewMemorySource creates an empty MemorySource
func NewMemorySource() *MemorySource {
	return &MemorySource{
		posts:        make(map[string][]*models.Media),
		FailAfter:    make(map[string]int),
		DetailErrors: make(map[string]error),
		opened:       make(map[string]int),
	}
}

// Add appends posts to a tag's feed; callers add them newest first
func (s *MemorySource) Add(tag string, posts ...*models.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[tag] = append(s.posts[tag], posts...)
}

// Opened reports how many times a tag's feed was opened
func (s *MemorySource) Opened(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened[tag]
}

// Open implements Source
func (s *MemorySource) Open(ctx context.Context, tag string) (Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[tag]++

	failAfter, fails := s.FailAfter[tag]
	if !fails {
		failAfter = -1
	}
	return &memoryFeed{
		src:       s,
		posts:     append([]*models.Media(nil), s.posts[tag]...),
		failAfter: failAfter,
	}, nil
}

type memoryFeed struct {
	src       *MemorySource
	posts     []*models.Media
	pos       int
	failAfter int
}

func (f *memoryFeed) Next(ctx context.Context) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.failAfter >= 0 && f.pos >= f.failAfter {
		return nil, fmt.Errorf("feed page unavailable after %d items", f.pos)
	}
	if f.pos >= len(f.posts) {
		return nil, ErrExhausted
	}

	m := f.posts[f.pos]
	f.pos++
	return &memoryItem{src: f.src, media: m}, nil
}

func (f *memoryFeed) Close() error { return nil }

type memoryItem struct {
	src   *MemorySource
	media *models.Media
}

func (i *memoryItem) Code() string { return i.media.Shortcode }

func (i *memoryItem) Detail(ctx context.Context) (*models.Media, error) {
	i.src.mu.Lock()
	err := i.src.DetailErrors[i.media.Shortcode]
	i.src.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return i.media, nil
}
