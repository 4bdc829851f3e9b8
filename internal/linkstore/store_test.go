package linkstore

import (
	"context"
	"slices"
	"testing"

	"github.com/nao1215/linkharvest/internal/model"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		existing    []string
		discovered  []string
		wantNew     []string
		wantUpdated []string
	}{
		{
			name:        "store already has p1",
			existing:    []string{"http://a.test/p1"},
			discovered:  []string{"http://a.test/p1", "http://a.test/p2"},
			wantNew:     []string{"http://a.test/p2"},
			wantUpdated: []string{"http://a.test/p1", "http://a.test/p2"},
		},
		{
			name:        "empty store",
			existing:    nil,
			discovered:  []string{"http://a.test/b", "http://a.test/a"},
			wantNew:     []string{"http://a.test/a", "http://a.test/b"},
			wantUpdated: []string{"http://a.test/a", "http://a.test/b"},
		},
		{
			name:        "nothing discovered",
			existing:    []string{"http://a.test/a"},
			discovered:  nil,
			wantNew:     []string{},
			wantUpdated: []string{"http://a.test/a"},
		},
		{
			name:        "everything known",
			existing:    []string{"http://a.test/a", "http://a.test/b"},
			discovered:  []string{"http://a.test/b", "http://a.test/a"},
			wantNew:     []string{},
			wantUpdated: []string{"http://a.test/a", "http://a.test/b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotNew, gotUpdated := Merge(tt.existing, tt.discovered)
			if gotNew == nil || gotUpdated == nil {
				t.Fatal("expected non-nil results")
			}
			if !slices.Equal(gotNew, tt.wantNew) {
				t.Errorf("expected new %v, got %v", tt.wantNew, gotNew)
			}
			if !slices.Equal(gotUpdated, tt.wantUpdated) {
				t.Errorf("expected updated %v, got %v", tt.wantUpdated, gotUpdated)
			}
		})
	}
}

func TestMergeDomain(t *testing.T) {
	t.Parallel()

	links := model.Links{
		"a.test": {"http://a.test/p1"},
		"b.test": {"http://b.test/x"},
	}

	newLinks := MergeDomain(links, "a.test", []string{"http://a.test/p2", "http://a.test/p1"})

	if !slices.Equal(newLinks, []string{"http://a.test/p2"}) {
		t.Errorf("expected only p2 to be new, got %v", newLinks)
	}
	if !slices.Equal(links["a.test"], []string{"http://a.test/p1", "http://a.test/p2"}) {
		t.Errorf("expected a.test to hold p1 and p2, got %v", links["a.test"])
	}
	if !slices.Equal(links["b.test"], []string{"http://b.test/x"}) {
		t.Errorf("other domains must be untouched, got %v", links["b.test"])
	}
}

// testStoreContract exercises the behaviour every Store must share.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	links, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load of empty store failed: %v", err)
	}
	if links == nil || len(links) != 0 {
		t.Fatalf("expected empty mapping, got %v", links)
	}

	first := model.Links{
		"a.test": {"http://a.test/p2", "http://a.test/p1", "http://a.test/p1"},
		"b.test": {"http://b.test/"},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !slices.Equal(loaded["a.test"], []string{"http://a.test/p1", "http://a.test/p2"}) {
		t.Errorf("expected sorted deduplicated a.test links, got %v", loaded["a.test"])
	}
	if !slices.Equal(loaded["b.test"], []string{"http://b.test/"}) {
		t.Errorf("expected b.test links, got %v", loaded["b.test"])
	}

	// Save overwrites the full mapping.
	second := model.Links{"c.test": {"http://c.test/x"}}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !slices.Equal(loaded.Domains(), []string{"c.test"}) {
		t.Errorf("expected only c.test after overwrite, got %v", loaded.Domains())
	}

	// A domain with no links survives a round trip.
	if err := store.Save(ctx, model.Links{"empty.test": {}}); err != nil {
		t.Fatalf("save of empty domain failed: %v", err)
	}
	loaded, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if urls, ok := loaded["empty.test"]; !ok || len(urls) != 0 {
		t.Errorf("expected empty.test with no links, got %v (present=%v)", urls, ok)
	}
}
