package model

import "sort"

// LinkSet is an unordered set of absolute URLs.
// Output order is always produced explicitly through Sorted.
type LinkSet struct {
	items map[string]struct{}
}

// NewLinkSet creates a LinkSet holding the given URLs.
func NewLinkSet(urls ...string) *LinkSet {
	s := &LinkSet{items: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.items[u] = struct{}{}
	}
	return s
}

// Add inserts a URL. It reports whether the URL was not already present.
func (s *LinkSet) Add(u string) bool {
	if _, ok := s.items[u]; ok {
		return false
	}
	s.items[u] = struct{}{}
	return true
}

// Has reports whether the URL is in the set.
func (s *LinkSet) Has(u string) bool {
	_, ok := s.items[u]
	return ok
}

// Len returns the number of URLs in the set.
func (s *LinkSet) Len() int {
	return len(s.items)
}

// Sorted returns the URLs in ascending lexicographic order.
// The result is never nil so it serializes as an empty JSON array.
func (s *LinkSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for u := range s.items {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set containing the URLs of both sets.
func (s *LinkSet) Union(other *LinkSet) *LinkSet {
	out := NewLinkSet()
	for u := range s.items {
		out.items[u] = struct{}{}
	}
	if other != nil {
		for u := range other.items {
			out.items[u] = struct{}{}
		}
	}
	return out
}

// Difference returns a new set with the URLs of s that are not in other.
func (s *LinkSet) Difference(other *LinkSet) *LinkSet {
	out := NewLinkSet()
	for u := range s.items {
		if other != nil && other.Has(u) {
			continue
		}
		out.items[u] = struct{}{}
	}
	return out
}
