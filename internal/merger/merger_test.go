package merger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/internal/crawler"
	"igcrawler/internal/downloader"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/storage"
)

type fakeArchive struct {
	ids       map[string]struct{}
	appended  []models.Post
	idsErr    error
	appendErr error
}

func (a *fakeArchive) IDs(ctx context.Context) (map[string]struct{}, error) {
	if a.idsErr != nil {
		return nil, a.idsErr
	}
	out := make(map[string]struct{}, len(a.ids))
	for id := range a.ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (a *fakeArchive) Append(ctx context.Context, posts []models.Post) (int, error) {
	if a.appendErr != nil {
		return 0, a.appendErr
	}
	a.appended = append(a.appended, posts...)
	return len(posts), nil
}

func (a *fakeArchive) Close(ctx context.Context) error { return nil }

type fakeImages struct {
	promoted  []string
	discarded []string
	exists    map[string]bool
	calls     []string
}

func (f *fakeImages) Promote(name string) error {
	f.calls = append(f.calls, "promote:"+name)
	if f.exists[name] {
		return fmt.Errorf("%s: %w", name, storage.ErrExists)
	}
	f.promoted = append(f.promoted, name)
	return nil
}

func (f *fakeImages) Discard(name string) error {
	f.discarded = append(f.discarded, name)
	return nil
}

type fakeMarks struct {
	written map[string]time.Time
	fail    map[string]bool
}

func (f *fakeMarks) Read(tag string) time.Time {
	return f.written[tag]
}

func (f *fakeMarks) Write(tag string, t time.Time) error {
	if f.fail[tag] {
		return errors.New("read-only")
	}
	f.written[tag] = t
	return nil
}

func dl(id string) downloader.Downloaded {
	return downloader.Downloaded{Post: models.Post{ID: id}, File: id + ".jpg"}
}

func TestMergeHappyPath(t *testing.T) {
	arch := &fakeArchive{ids: map[string]struct{}{"old": {}}}
	images := &fakeImages{exists: map[string]bool{"3.jpg": true}}
	marks := &fakeMarks{written: map[string]time.Time{}}
	log := logger.NewTestLogger()

	started := time.Unix(1000, 0)
	results := []*crawler.Result{
		{Tag: "sun", StartedAt: started, Reason: crawler.StopWatermark},
		{Tag: "sea", StartedAt: started, Reason: crawler.StopFeedError, Err: errors.New("boom")},
		{Tag: "sky", StartedAt: started, Reason: crawler.StopExhausted},
	}

	sum, err := New(arch, images, marks, log).Merge(context.Background(),
		[]downloader.Downloaded{dl("1"), dl("old"), dl("2"), dl("1"), dl("3")}, results)
	require.NoError(t, err)

	var archived []string
	for _, p := range arch.appended {
		archived = append(archived, p.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, archived)
	assert.Equal(t, []string{"1.jpg", "2.jpg"}, images.promoted)
	assert.Equal(t, []string{"old.jpg"}, images.discarded)

	assert.Equal(t, map[string]time.Time{"sun": started, "sky": started}, marks.written)

	assert.Equal(t, &Summary{
		Archived:       3,
		Duplicates:     2,
		Promoted:       2,
		PromoteFailed:  1,
		Watermarks:     2,
		WatermarksHeld: 1,
	}, sum)
	assert.True(t, log.HasMessage("Image already exists, keeping staged copy"))
	assert.True(t, log.HasMessage("Watermark held after feed failure"))
}

func TestMergeArchiveFailureLeavesStateAlone(t *testing.T) {
	images := &fakeImages{}
	marks := &fakeMarks{written: map[string]time.Time{}}
	results := []*crawler.Result{{Tag: "sun", StartedAt: time.Unix(5, 0)}}

	for name, arch := range map[string]*fakeArchive{
		"ids":    {idsErr: errors.New("unreachable")},
		"append": {appendErr: errors.New("disk full")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(arch, images, marks, nil).Merge(context.Background(), []downloader.Downloaded{dl("1")}, results)
			assert.Error(t, err)
			assert.Empty(t, images.calls)
			assert.Empty(t, marks.written)
		})
	}
}

func TestMergeWatermarkFailureContinues(t *testing.T) {
	marks := &fakeMarks{written: map[string]time.Time{}, fail: map[string]bool{"a": true}}
	results := []*crawler.Result{
		{Tag: "a", StartedAt: time.Unix(1, 0)},
		{Tag: "b", StartedAt: time.Unix(2, 0)},
	}

	sum, err := New(&fakeArchive{}, &fakeImages{}, marks, nil).Merge(context.Background(), nil, results)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Watermarks)
	assert.Contains(t, marks.written, "b")
}

func TestMergeNeverMovesWatermarkBack(t *testing.T) {
	marks := &fakeMarks{written: map[string]time.Time{
		"sun": time.Unix(2000, 0),
		"sea": time.Unix(2000, 0),
	}}
	results := []*crawler.Result{
		{Tag: "sun", StartedAt: time.Unix(1000, 0)},
		{Tag: "sea", StartedAt: time.Unix(3000, 0)},
	}

	sum, err := New(&fakeArchive{}, &fakeImages{}, marks, nil).Merge(context.Background(), nil, results)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Watermarks)
	assert.Equal(t, time.Unix(2000, 0), marks.written["sun"])
	assert.Equal(t, time.Unix(3000, 0), marks.written["sea"])
}

func TestFilter(t *testing.T) {
	fresh, dupes := Filter([]downloader.Downloaded{dl("a"), dl("b"), dl("a"), dl("c")}, map[string]struct{}{"c": {}})
	assert.Equal(t, []downloader.Downloaded{dl("a"), dl("b")}, fresh)
	assert.Equal(t, []downloader.Downloaded{dl("a"), dl("c")}, dupes)
}
