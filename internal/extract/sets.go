package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const costLineTemplate = "CostLine"

// SetExtractor turns item-set pages into typed Set records linking the
// container item to its components.
type SetExtractor struct {
	reporter
	repo     pages.Repository
	resolver *Resolver
}

func NewSetExtractor(repo pages.Repository, resolver *Resolver, logger *logrus.Logger, hub *sentry.Hub) (*SetExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if resolver == nil {
		return nil, eris.New("item resolver is required")
	}

	return &SetExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ExtractAll re-derives the item sets from the persisted item-set pages.
func (e *SetExtractor) ExtractAll(ctx context.Context) ([]Set, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagSet)
	if err != nil {
		return nil, eris.Wrap(err, "listing item set pages")
	}

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting item sets")

	var sets []Set
	for i := range tagged {
		if set := e.extractFromPage(&tagged[i]); set != nil {
			sets = append(sets, *set)
		}
	}

	sort.Slice(sets, func(a, b int) bool { return sets[a].Name < sets[b].Name })

	e.logInfo(logrus.Fields{"sets": len(sets)}, "item set extraction complete")
	return sets, nil
}

func (e *SetExtractor) extractFromPage(page *pages.Page) *Set {
	if page.Text == "" {
		return nil
	}

	container := e.resolver.Resolve(page.Title)
	if container == nil {
		e.logWarn(logrus.Fields{"page_id": page.ID, "title": page.Title}, "set container item did not resolve, set dropped")
		return nil
	}

	set := Set{ID: container.ID, Name: container.Name}
	for _, template := range wikitext.ParseTemplates(page.Text) {
		if !template.Is(costLineTemplate) {
			continue
		}

		component := strings.TrimSpace(template.Get("1"))
		if component == "" || strings.EqualFold(component, "total") {
			continue
		}
		if component == container.Name {
			continue
		}

		id, resolved := e.resolver.ResolveID(component)
		if !resolved {
			e.logWarn(logrus.Fields{
				"page_id":   page.ID,
				"set":       set.Name,
				"component": component,
			}, "set component did not resolve, component dropped")
			continue
		}
		set.ComponentIDs = append(set.ComponentIDs, id)
	}

	if len(set.ComponentIDs) == 0 {
		return nil
	}
	return &set
}
