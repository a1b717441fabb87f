// Package feed defines the contract between the crawler and whatever produces
// posts for a hashtag, newest first.
package feed

import (
	"context"
	"errors"

	"igcrawler/pkg/models"
)

// ErrExhausted is returned by Feed.Next when there are no more items
var ErrExhausted = errors.New("feed exhausted")

// Item is a lightweight feed entry. Its full record is fetched lazily.
type Item interface {
	// Code is the post shortcode
	Code() string
	// Detail fetches the full post record
	Detail(ctx context.Context) (*models.Media, error)
}

// Feed iterates a hashtag's posts in reverse-chronological order
type Feed interface {
	// Next returns the next item, ErrExhausted at the end, or any other error
	// when the feed itself cannot continue.
	Next(ctx context.Context) (Item, error)
	Close() error
}

// Source opens feeds by tag
type Source interface {
	Open(ctx context.Context, tag string) (Feed, error)
}
