package extract

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
)

const goblinWikitext = `{{Infobox Monster
|name = Goblin
|id = 3029,3030
|members = No
|combat = 5
|hitpoints = 12
|max hit = 1
|aggressive = No
|att = 1
|str = 3
|def = 1
|immunepoison = Immune
|immunevenom = Not immune
|assignedby = Turael, Spria
}}`

const goblinDropsHTML = `<table class="item-drops">
<tr><th>Image</th><th>Item</th><th>Quantity</th><th>Rarity</th></tr>
<tr><td><img/></td><td>Coins[d]</td><td>1-24</td><td>Common</td></tr>
<tr><td><img/></td><td>Bucket</td><td>1</td><td>Uncommon</td></tr>
<tr><td><img/></td><td>Mystery orb</td><td>1</td><td>Rare</td></tr>
</table>`

func TestMonsterExtractorStatsAndDrops(t *testing.T) {
	t.Parallel()

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{
		ID:    391,
		Title: "Goblin",
		Text:  goblinWikitext,
		HTML:  goblinDropsHTML,
	}, pages.TagMonster)

	extractor, err := NewMonsterExtractor(repo, testResolver(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewMonsterExtractor returned error: %v", err)
	}

	monsters, err := extractor.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}
	if len(monsters) != 1 {
		t.Fatalf("expected 1 monster, got %d", len(monsters))
	}

	goblin := monsters[0]
	if goblin.ID != 3029 || len(goblin.IDs) != 2 || goblin.IDs[1] != 3030 {
		t.Fatalf("unexpected ids: %#v", goblin)
	}
	if goblin.Level != 5 || goblin.Hitpoints != 12 {
		t.Fatalf("unexpected combat level/hitpoints: %#v", goblin)
	}
	if goblin.CombatStats.Strength != 3 {
		t.Fatalf("unexpected strength: %#v", goblin.CombatStats)
	}
	if !goblin.CombatStats.ImmunePoison || goblin.CombatStats.ImmuneVenom {
		t.Fatalf("unexpected immunities: %#v", goblin.CombatStats)
	}
	if len(goblin.AssignedBy) != 2 || goblin.AssignedBy[1] != "Spria" {
		t.Fatalf("unexpected slayer masters: %v", goblin.AssignedBy)
	}

	if len(goblin.Drops) != 3 {
		t.Fatalf("expected 3 drops, got %d: %#v", len(goblin.Drops), goblin.Drops)
	}
	coins := goblin.Drops[0]
	if coins.Name != "Coins" {
		t.Fatalf("expected footnote marker stripped, got %q", coins.Name)
	}
	if coins.ItemID == nil || *coins.ItemID != 995 {
		t.Fatalf("expected coins to resolve to 995, got %v", coins.ItemID)
	}
	if coins.Quantity != "1-24" || coins.Rarity != "Common" {
		t.Fatalf("unexpected quantity/rarity: %#v", coins)
	}
	if goblin.Drops[2].ItemID != nil {
		t.Fatalf("expected unknown drop to keep nil item id, got %v", goblin.Drops[2].ItemID)
	}
}

func TestMonsterExtractorWarnsOnUnresolvedDrop(t *testing.T) {
	t.Parallel()

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{
		ID:    391,
		Title: "Goblin",
		Text:  goblinWikitext,
		HTML:  goblinDropsHTML,
	}, pages.TagMonster)

	logger, hook := logrustest.NewNullLogger()
	extractor, err := NewMonsterExtractor(repo, testResolver(), logger, nil)
	if err != nil {
		t.Fatalf("NewMonsterExtractor returned error: %v", err)
	}

	if _, err := extractor.ExtractAll(context.Background()); err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["drop"] == "Mystery orb" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a warning for the unresolved drop, got %#v", hook.AllEntries())
	}
}

func TestMonsterExtractorVariantExpansion(t *testing.T) {
	t.Parallel()

	text := `{{Infobox Monster
|name = Zulrah
|members = Yes
|version1 = Serpentine
|id1 = 2042
|max hit1 = 41
|version2 = Magma
|id2 = 2043
}}`

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{ID: 880, Title: "Zulrah", Text: text}, pages.TagMonster)

	extractor, err := NewMonsterExtractor(repo, testResolver(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewMonsterExtractor returned error: %v", err)
	}

	monsters, err := extractor.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}
	if len(monsters) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(monsters))
	}

	first, second := monsters[0], monsters[1]
	if first.ID != 2042 || second.ID != 2043 {
		t.Fatalf("unexpected variant ids: %d, %d", first.ID, second.ID)
	}
	if first.Version != "Serpentine" || second.Version != "Magma" {
		t.Fatalf("unexpected versions: %q, %q", first.Version, second.Version)
	}
	if !first.Members || !second.Members {
		t.Fatalf("expected members flag inherited by both variants")
	}
	if first.MaxHit != 41 {
		t.Fatalf("expected variant max hit override, got %d", first.MaxHit)
	}
	if second.MaxHit != 0 {
		t.Fatalf("expected base max hit for second variant, got %d", second.MaxHit)
	}
}

func TestMonsterExtractorSkipsPagesWithoutIDs(t *testing.T) {
	t.Parallel()

	repo := setupPageRepo(t)
	seedTaggedPage(t, repo, pages.Page{
		ID:    12,
		Title: "Unobtainable beast",
		Text:  "{{Infobox Monster\n|name = Unobtainable beast\n}}",
	}, pages.TagMonster)

	extractor, err := NewMonsterExtractor(repo, testResolver(), discardLogger(), nil)
	if err != nil {
		t.Fatalf("NewMonsterExtractor returned error: %v", err)
	}

	monsters, err := extractor.ExtractAll(context.Background())
	if err != nil {
		t.Fatalf("ExtractAll returned error: %v", err)
	}
	if len(monsters) != 0 {
		t.Fatalf("expected no monsters without ids, got %#v", monsters)
	}
}
