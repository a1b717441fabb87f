package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	tagPath  = "/explore/tags/%s/"
	postPath = "/p/%s/"
)

// TagFeedURL builds the JSON URL of one page of a hashtag feed
func TagFeedURL(base, tag, cursor string) string {
	params := url.Values{}
	params.Set("__a", "1")
	params.Set("__d", "dis")
	if cursor != "" {
		params.Set("max_id", cursor)
	}
	return fmt.Sprintf("%s"+tagPath+"?%s", strings.TrimRight(base, "/"), url.PathEscape(tag), params.Encode())
}

// PostDetailURL builds the JSON URL of a single post
func PostDetailURL(base, shortcode string) string {
	params := url.Values{}
	params.Set("__a", "1")
	params.Set("__d", "dis")
	return fmt.Sprintf("%s"+postPath+"?%s", strings.TrimRight(base, "/"), url.PathEscape(shortcode), params.Encode())
}
