// Package normalize turns raw feed records into archive posts.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"igcrawler/pkg/hashtag"
	"igcrawler/pkg/models"
)

var (
	// ErrNoCaption means the record has no caption edge
	ErrNoCaption = errors.New("post has no caption")
	// ErrNoHashtags means the caption yields no usable hashtag
	ErrNoHashtags = errors.New("caption has no hashtags")
	// ErrMalformed means a mandatory field is missing
	ErrMalformed = errors.New("malformed post record")
)

// Post validates media and builds the canonical post. Every error is a
// rejection: the caller skips the record.
func Post(media *models.Media) (models.Post, error) {
	if media == nil {
		return models.Post{}, fmt.Errorf("%w: empty record", ErrMalformed)
	}
	if err := checkRequired(media); err != nil {
		return models.Post{}, err
	}

	caption := media.EdgeMediaToCaption
	if caption == nil || len(caption.Edges) == 0 {
		return models.Post{}, ErrNoCaption
	}

	tags := hashtag.Split(hashtag.Capture(caption.Edges[0].Node.Text))
	if len(tags) == 0 {
		return models.Post{}, ErrNoHashtags
	}

	return models.Post{
		ID:        media.ID,
		Username:  media.Owner.Username,
		UserID:    media.Owner.ID,
		CreatedAt: time.Unix(media.TakenAtTimestamp, 0).UTC(),
		Permalink: models.Permalink(media.Shortcode),
		Tags:      tags,
		ImageURL:  media.DisplayURL,
	}, nil
}

func checkRequired(m *models.Media) error {
	missing := func(field string) error {
		return fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}

	switch {
	case m.ID == "":
		return missing("id")
	case m.Shortcode == "":
		return missing("shortcode")
	case m.Owner == nil || m.Owner.ID == "":
		return missing("owner")
	case m.TakenAtTimestamp <= 0:
		return missing("timestamp")
	case m.DisplayURL == "":
		return missing("image url")
	}
	return nil
}
