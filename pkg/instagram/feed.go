package instagram

import (
	"context"
	"fmt"

	"igcrawler/pkg/feed"
	"igcrawler/pkg/models"
)

// Open implements feed.Source. No request is made until the first Next.
func (c *Client) Open(ctx context.Context, tag string) (feed.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tagFeed{client: c, tag: tag}, nil
}

type tagFeed struct {
	client  *Client
	tag     string
	buf     []models.Media
	cursor  string
	hasNext bool
	fetched bool
	pages   int
}

func (f *tagFeed) Next(ctx context.Context) (feed.Item, error) {
	for len(f.buf) == 0 {
		if f.fetched && !f.hasNext {
			return nil, feed.ErrExhausted
		}

		page, err := f.client.FetchTagPage(ctx, f.tag, f.cursor)
		if err != nil {
			return nil, fmt.Errorf("tag %s page %d: %w", f.tag, f.pages+1, err)
		}
		f.pages++
		f.fetched = true

		prev := f.cursor
		f.cursor = page.PageInfo.EndCursor
		f.hasNext = page.PageInfo.HasNextPage && f.cursor != "" && f.cursor != prev

		for _, edge := range page.Edges {
			f.buf = append(f.buf, edge.Node)
		}
	}

	node := f.buf[0]
	f.buf = f.buf[1:]
	return &tagItem{client: f.client, node: node}, nil
}

func (f *tagFeed) Close() error {
	f.buf = nil
	return nil
}

type tagItem struct {
	client *Client
	node   models.Media
}

func (i *tagItem) Code() string { return i.node.Shortcode }

func (i *tagItem) Detail(ctx context.Context) (*models.Media, error) {
	return i.client.FetchPost(ctx, i.node.Shortcode)
}
