package extract

import (
	"context"
	"testing"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
)

const spawnWikitext = torchWikitext + `
{{ItemSpawnLine|name=Torch|location=[[Lumbridge]] cellar|members=No|3221,3218|3222,3218,1|3223,3218:3}}
{{ItemSpawnLine|location=Wilderness|members=Yes|3100,3700}}`

func TestSpawnExtractorParsesSpawnLines(t *testing.T) {
	t.Parallel()

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{ID: 1213, Title: "Torch", Text: spawnWikitext}, pages.TagItemSpawn)

	extractor, err := NewSpawnExtractor(repo, testResolver(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewSpawnExtractor returned error: %v", err)
	}

	spawns, err := extractor.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}
	if len(spawns) != 2 {
		t.Fatalf("expected 2 spawn groups, got %d", len(spawns))
	}

	// Sorted by location; "Wilderness" precedes the bracketed link.
	wilderness, cellar := spawns[0], spawns[1]
	if cellar.ItemID != 1213 || cellar.Name != "Torch" {
		t.Fatalf("unexpected spawn identity: %#v", cellar)
	}
	if cellar.Location != "[[Lumbridge]] cellar" || cellar.Members {
		t.Fatalf("unexpected location/members: %#v", cellar)
	}
	if len(cellar.Spawns) != 3 {
		t.Fatalf("expected 3 spawn points, got %#v", cellar.Spawns)
	}
	if p := cellar.Spawns[0]; p.X != 3221 || p.Y != 3218 || p.Plane != 0 || p.Quantity != 1 {
		t.Fatalf("unexpected default plane/quantity: %#v", p)
	}
	if p := cellar.Spawns[1]; p.Plane != 1 {
		t.Fatalf("expected explicit plane, got %#v", p)
	}
	if p := cellar.Spawns[2]; p.Quantity != 3 {
		t.Fatalf("expected explicit quantity, got %#v", p)
	}

	if wilderness.Name != "Torch" {
		t.Fatalf("expected page title fallback name, got %q", wilderness.Name)
	}
	if !wilderness.Members || len(wilderness.Spawns) != 1 {
		t.Fatalf("unexpected wilderness spawn: %#v", wilderness)
	}
}

func TestSpawnExtractorFallsBackToResolverForItemID(t *testing.T) {
	t.Parallel()

	text := `{{ItemSpawnLine|location=Draynor|members=No|3092,3243}}`

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{ID: 88, Title: "Bucket", Text: text}, pages.TagItemSpawn)

	extractor, err := NewSpawnExtractor(repo, testResolver(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewSpawnExtractor returned error: %v", err)
	}

	spawns, err := extractor.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}
	if len(spawns) != 1 {
		t.Fatalf("expected 1 spawn group, got %d", len(spawns))
	}
	if spawns[0].ItemID != 1925 {
		t.Fatalf("expected item id resolved from page title, got %d", spawns[0].ItemID)
	}
}
