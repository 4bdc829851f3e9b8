package linkstore

import (
	"context"
	"errors"

	"github.com/nao1215/linkharvest/internal/model"
)

// ErrCorruptStore is returned when persisted state cannot be decoded.
var ErrCorruptStore = errors.New("link store is corrupt")

// Store loads and saves the domain to links mapping.
type Store interface {
	// Load returns the persisted mapping. A store with no prior state
	// returns an empty mapping and no error.
	Load(ctx context.Context) (model.Links, error)

	// Save replaces the persisted mapping with links.
	Save(ctx context.Context, links model.Links) error
}

// Merge returns the discovered links missing from existing and the union of
// both. Both results are sorted ascending and never nil.
func Merge(existing, discovered []string) (newLinks, updated []string) {
	known := model.NewLinkSet(existing...)
	found := model.NewLinkSet(discovered...)
	return found.Difference(known).Sorted(), known.Union(found).Sorted()
}

// MergeDomain merges discovered into the links recorded for domain, updating
// links in place, and returns the links that were new.
func MergeDomain(links model.Links, domain string, discovered []string) []string {
	known := links.Set(domain)
	found := model.NewLinkSet(discovered...)
	newLinks := found.Difference(known).Sorted()
	links.Put(domain, known.Union(found))
	return newLinks
}
