// Package workset holds the posts gathered during one run, in insertion order
// and unique by post id.
package workset

import "igcrawler/pkg/models"

// Set is an ordered, id-unique collection of posts
type Set struct {
	posts []models.Post
	index map[string]int
}

// New creates an empty Set
func New() *Set {
	return &Set{index: make(map[string]int)}
}

// From builds a Set from posts, keeping the first occurrence of each id
func From(posts []models.Post) *Set {
	s := New()
	s.AddAll(posts)
	return s
}

// Add inserts p unless a post with the same id is present. It reports whether p was added.
func (s *Set) Add(p models.Post) bool {
	if _, ok := s.index[p.ID]; ok {
		return false
	}
	s.index[p.ID] = len(s.posts)
	s.posts = append(s.posts, p)
	return true
}

// AddAll inserts every post and returns how many were new
func (s *Set) AddAll(posts []models.Post) int {
	added := 0
	for _, p := range posts {
		if s.Add(p) {
			added++
		}
	}
	return added
}

// Contains reports whether a post with id is present
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of posts
func (s *Set) Len() int {
	return len(s.posts)
}

// Posts returns a copy of the posts in insertion order
func (s *Set) Posts() []models.Post {
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Without returns a new Set holding the posts for which drop returns false
func (s *Set) Without(drop func(models.Post) bool) *Set {
	out := New()
	for _, p := range s.posts {
		if !drop(p) {
			out.Add(p)
		}
	}
	return out
}
