package model

import "sort"

// Links maps a domain to every URL ever discovered under it.
// It is the persisted form of the link store.
type Links map[string][]string

// NewLinks creates an empty Links mapping.
func NewLinks() Links {
	return make(Links)
}

// Set returns the links recorded for domain as a LinkSet.
// An unknown domain yields an empty set.
func (l Links) Set(domain string) *LinkSet {
	return NewLinkSet(l[domain]...)
}

// Put replaces the links recorded for domain with the contents of set.
func (l Links) Put(domain string, set *LinkSet) {
	l[domain] = set.Sorted()
}

// Domains returns the known domains in ascending order.
func (l Links) Domains() []string {
	domains := make([]string, 0, len(l))
	for d := range l {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
