package extract

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const spawnLineTemplate = "ItemSpawnLine"

// SpawnExtractor turns item-spawn pages into typed ItemSpawn records.
type SpawnExtractor struct {
	reporter
	repo     pages.Repository
	resolver *Resolver
}

func NewSpawnExtractor(repo pages.Repository, resolver *Resolver, logger *logrus.Logger, hub *sentry.Hub) (*SpawnExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if resolver == nil {
		return nil, eris.New("item resolver is required")
	}

	return &SpawnExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ExtractAll re-derives the world item spawns from the persisted spawn pages.
func (e *SpawnExtractor) ExtractAll(ctx context.Context) ([]ItemSpawn, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagItemSpawn)
	if err != nil {
		return nil, eris.Wrap(err, "listing item spawn pages")
	}

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting item spawns")

	var spawns []ItemSpawn
	for i := range tagged {
		spawns = append(spawns, e.extractFromPage(&tagged[i])...)
	}

	sort.Slice(spawns, func(a, b int) bool {
		if spawns[a].ItemID != spawns[b].ItemID {
			return spawns[a].ItemID < spawns[b].ItemID
		}
		return spawns[a].Location < spawns[b].Location
	})

	e.logInfo(logrus.Fields{"spawns": len(spawns)}, "item spawn extraction complete")
	return spawns, nil
}

func (e *SpawnExtractor) extractFromPage(page *pages.Page) []ItemSpawn {
	if page.Text == "" {
		return nil
	}

	itemID := e.owningItemID(page)
	if itemID == 0 {
		e.logWarn(logrus.Fields{"page_id": page.ID, "title": page.Title}, "spawn page item did not resolve, page skipped")
		return nil
	}

	var spawns []ItemSpawn
	for _, template := range wikitext.ParseTemplates(page.Text) {
		if !template.Is(spawnLineTemplate) {
			continue
		}

		spawn := ItemSpawn{
			ItemID:   itemID,
			Name:     template.Get("name"),
			Location: template.Get("location"),
			Members:  yesBool(template.Get("members")),
		}
		if spawn.Name == "" {
			spawn.Name = page.Title
		}

		// Coordinates are the positional params, one spawn point each.
		for slot := 1; ; slot++ {
			token, found := template.Params[strconv.Itoa(slot)]
			if !found {
				break
			}
			if point, ok := parseSpawnToken(token); ok {
				spawn.Spawns = append(spawn.Spawns, point)
			}
		}

		if len(spawn.Spawns) > 0 {
			spawns = append(spawns, spawn)
		}
	}
	return spawns
}

// owningItemID finds the item the page describes: its infobox id when
// present, the resolver over the page title otherwise.
func (e *SpawnExtractor) owningItemID(page *pages.Page) int {
	if infobox := wikitext.FirstTemplate(page.Text, itemInfoboxName); infobox != nil {
		if id := looseInt(infobox.Get("id")); id != 0 {
			return id
		}
		if id := looseInt(infobox.Get("id1")); id != 0 {
			return id
		}
	}

	if id, resolved := e.resolver.ResolveID(page.Title); resolved {
		return id
	}
	return 0
}

// parseSpawnToken parses a coordinate token of the form "x,y", "x,y,plane"
// or "x,y[:qty]". Plane defaults to the ground floor, quantity to one.
func parseSpawnToken(token string) (SpawnPoint, bool) {
	token = strings.TrimSpace(token)

	point := SpawnPoint{Quantity: 1}
	if coords, qty, found := strings.Cut(token, ":"); found {
		token = coords
		if parsed, err := strconv.Atoi(strings.TrimSpace(qty)); err == nil && parsed > 0 {
			point.Quantity = parsed
		}
	}

	parts := strings.Split(token, ",")
	if len(parts) < 2 {
		return SpawnPoint{}, false
	}

	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return SpawnPoint{}, false
	}
	point.X, point.Y = x, y

	if len(parts) > 2 {
		if plane, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
			point.Plane = plane
		}
	}
	return point, true
}
