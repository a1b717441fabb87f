package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/models"
)

func TestMemorySourceIteratesThenExhausts(t *testing.T) {
	src := NewMemorySource()
	src.Add("cats", &models.Media{ID: "2", Shortcode: "B"}, &models.Media{ID: "1", Shortcode: "A"})

	f, err := src.Open(context.Background(), "cats")
	require.NoError(t, err)
	defer f.Close()

	var codes []string
	for {
		item, err := f.Next(context.Background())
		if errors.Is(err, ErrExhausted) {
			break
		}
		require.NoError(t, err)
		codes = append(codes, item.Code())

		m, err := item.Detail(context.Background())
		require.NoError(t, err)
		assert.Equal(t, item.Code(), m.Shortcode)
	}

	assert.Equal(t, []string{"B", "A"}, codes)
	assert.Equal(t, 1, src.Opened("cats"))
}

func TestMemorySourceFailures(t *testing.T) {
	src := NewMemorySource()
	src.Add("dogs", &models.Media{Shortcode: "A"}, &models.Media{Shortcode: "B"})
	src.FailAfter["dogs"] = 1
	src.DetailErrors["A"] = errors.New("private post")

	f, err := src.Open(context.Background(), "dogs")
	require.NoError(t, err)

	item, err := f.Next(context.Background())
	require.NoError(t, err)
	_, err = item.Detail(context.Background())
	assert.EqualError(t, err, "private post")

	_, err = f.Next(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExhausted))
}

func TestMemorySourceUnknownTagIsEmpty(t *testing.T) {
	f, err := NewMemorySource().Open(context.Background(), "nothing")
	require.NoError(t, err)

	_, err = f.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}
