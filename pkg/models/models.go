package models

import (
	"fmt"
	"time"
)

// PermalinkBase is the prefix of a post's public URL
const PermalinkBase = "https://www.instagram.com/p/"

// Post is the canonical, normalized record kept in the archive
type Post struct {
	ID        string    `json:"postid" bson:"postid"`
	Username  string    `json:"username" bson:"username"`
	UserID    string    `json:"userid" bson:"userid"`
	CreatedAt time.Time `json:"created_time" bson:"created_time"`
	Permalink string    `json:"code" bson:"code"`
	Tags      []string  `json:"tags" bson:"tags"`
	ImageURL  string    `json:"img_url" bson:"img_url"`
}

// Permalink builds the public URL of a post from its shortcode
func Permalink(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s%s/", PermalinkBase, shortcode)
}

// Media is the raw post detail as returned by the feed. Every field is optional
// on the wire; the normalizer decides what is mandatory.
type Media struct {
	ID                 string              `json:"id"`
	Shortcode          string              `json:"shortcode"`
	TakenAtTimestamp   int64               `json:"taken_at_timestamp"`
	DisplayURL         string              `json:"display_url"`
	IsVideo            bool                `json:"is_video"`
	Owner              *Owner              `json:"owner"`
	EdgeMediaToCaption *EdgeMediaToCaption `json:"edge_media_to_caption"`
}

// Owner identifies the author of a post
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// EdgeMediaToCaption wraps caption nodes; the first edge holds the caption text
type EdgeMediaToCaption struct {
	Edges []CaptionEdge `json:"edges"`
}

// CaptionEdge wraps a caption node
type CaptionEdge struct {
	Node CaptionNode `json:"node"`
}

// CaptionNode carries caption text
type CaptionNode struct {
	Text string `json:"text"`
}

// NewCaption is a convenience for building a single-caption edge
func NewCaption(text string) *EdgeMediaToCaption {
	return &EdgeMediaToCaption{
		Edges: []CaptionEdge{{Node: CaptionNode{Text: text}}},
	}
}
