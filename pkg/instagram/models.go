package instagram

import "igcrawler/pkg/models"

// TagResponse is the body of a hashtag feed page
type TagResponse struct {
	RequiresToLogin bool `json:"requires_to_login"`
	GraphQL         struct {
		Hashtag Hashtag `json:"hashtag"`
	} `json:"graphql"`
}

// Hashtag holds a page of the tag's recent media
type Hashtag struct {
	Name               string          `json:"name"`
	EdgeHashtagToMedia MediaConnection `json:"edge_hashtag_to_media"`
}

// MediaConnection is one page of media with its cursor
type MediaConnection struct {
	Count    int         `json:"count"`
	PageInfo PageInfo    `json:"page_info"`
	Edges    []MediaEdge `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// MediaEdge wraps a feed node
type MediaEdge struct {
	Node models.Media `json:"node"`
}

// PostResponse is the body of a post detail request
type PostResponse struct {
	RequiresToLogin bool `json:"requires_to_login"`
	GraphQL         struct {
		ShortcodeMedia *models.Media `json:"shortcode_media"`
	} `json:"graphql"`
}
