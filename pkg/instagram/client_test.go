package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/config"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/feed"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/retry"
)

func tagPage(cursor string, hasNext bool, nodes ...models.Media) TagResponse {
	var resp TagResponse
	resp.GraphQL.Hashtag.Name = "sunset"
	resp.GraphQL.Hashtag.EdgeHashtagToMedia.PageInfo = PageInfo{HasNextPage: hasNext, EndCursor: cursor}
	for _, n := range nodes {
		resp.GraphQL.Hashtag.EdgeHashtagToMedia.Edges = append(resp.GraphQL.Hashtag.EdgeHashtagToMedia.Edges, MediaEdge{Node: n})
	}
	return resp
}

func postBody(m models.Media) PostResponse {
	var resp PostResponse
	resp.GraphQL.ShortcodeMedia = &m
	return resp
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Instagram
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	return NewClient(cfg, logger.NewNopLogger(), opts...)
}

func TestTagFeedPaginates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/explore/tags/sunset/", r.URL.Path)
		switch r.URL.Query().Get("max_id") {
		case "":
			writeJSON(w, tagPage("c1", true, models.Media{Shortcode: "A"}, models.Media{Shortcode: "B"}))
		case "c1":
			writeJSON(w, tagPage("c2", false, models.Media{Shortcode: "C"}))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("max_id"))
		}
	})

	f, err := client.Open(context.Background(), "sunset")
	require.NoError(t, err)
	defer f.Close()

	var codes []string
	for {
		item, err := f.Next(context.Background())
		if errors.Is(err, feed.ErrExhausted) {
			break
		}
		require.NoError(t, err)
		codes = append(codes, item.Code())
	}
	assert.Equal(t, []string{"A", "B", "C"}, codes)
}

func TestTagFeedStopsOnRepeatedCursor(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, tagPage("same", true, models.Media{Shortcode: "X"}))
	})

	f, _ := client.Open(context.Background(), "loop")
	n := 0
	for {
		_, err := f.Next(context.Background())
		if err != nil {
			assert.ErrorIs(t, err, feed.ErrExhausted)
			break
		}
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTagFeedPageFailureIsNotExhaustion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f, _ := client.Open(context.Background(), "broken")
	_, err := f.Next(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, feed.ErrExhausted))
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(err))
}

func TestPageRequestsAreRetried(t *testing.T) {
	var calls int32
	rc := retry.DefaultConfig()
	rc.MaxAttempts = 3
	rc.Backoff = &retry.ExponentialBackoff{BaseDelay: time.Millisecond, Multiplier: 1}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, tagPage("", false, models.Media{Shortcode: "OK"}))
	}, WithRetry(rc))

	page, err := client.FetchTagPage(context.Background(), "retry", "")
	require.NoError(t, err)
	assert.Len(t, page.Edges, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestItemDetail(t *testing.T) {
	media := models.Media{
		ID:                 "111",
		Shortcode:          "A",
		TakenAtTimestamp:   1700000000,
		DisplayURL:         "https://cdn.example/a.jpg",
		Owner:              &models.Owner{ID: "9", Username: "alice"},
		EdgeMediaToCaption: models.NewCaption("hello #sun"),
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/explore/tags/"):
			writeJSON(w, tagPage("", false, models.Media{Shortcode: "A"}))
		case r.URL.Path == "/p/A/":
			writeJSON(w, postBody(media))
		default:
			http.NotFound(w, r)
		}
	})

	f, _ := client.Open(context.Background(), "sun")
	item, err := f.Next(context.Background())
	require.NoError(t, err)

	got, err := item.Detail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner.Username)
	assert.Equal(t, "hello #sun", got.EdgeMediaToCaption.Edges[0].Node.Text)
}

func TestFetchPostNotFound(t *testing.T) {
	client := newTestClient(t, http.NotFound)

	_, err := client.FetchPost(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestFetchPostRequiresLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"requires_to_login": true}`)
	})

	_, err := client.FetchPost(context.Background(), "private")
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
}

func TestMalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>login</html>")
	})

	_, err := client.FetchTagPage(context.Background(), "x", "")
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestSessionCookiesForwarded(t *testing.T) {
	var cookie, csrf string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		csrf = r.Header.Get("X-CSRFToken")
		writeJSON(w, tagPage("", false))
	})
	client.SetSession("sess123", "tok456")

	_, err := client.FetchTagPage(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, "sessionid=sess123; csrftoken=tok456", cookie)
	assert.Equal(t, "tok456", csrf)
}

func TestImageClient(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.jpg":
			w.Write([]byte("jpeg"))
		case "/missing.jpg":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	client := NewImageClient(config.DownloadConfig{Timeout: 5 * time.Second, UserAgent: "Mozilla/5.0"}, logger.NewNopLogger())

	body, err := client.Open(context.Background(), srv.URL+"/ok.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, "Mozilla/5.0", ua)

	_, err = client.Open(context.Background(), srv.URL+"/missing.jpg")
	assert.True(t, errs.IsNotFound(err))

	_, err = client.Open(context.Background(), srv.URL+"/forbidden.jpg")
	require.Error(t, err)
	assert.False(t, errs.IsNotFound(err))

	_, err = client.Open(context.Background(), "http://127.0.0.1:1/unreachable.jpg")
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/explore/tags/cats/?__a=1&__d=dis", TagFeedURL(BaseURL, "cats", ""))
	assert.Equal(t, "https://www.instagram.com/explore/tags/cats/?__a=1&__d=dis&max_id=abc", TagFeedURL(BaseURL+"/", "cats", "abc"))
	assert.Equal(t, "https://www.instagram.com/p/XYZ/?__a=1&__d=dis", PostDetailURL(BaseURL, "XYZ"))
}
