package extract

import (
	"context"
	"sort"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const (
	storeHeadTemplate = "StoreTableHead"
	storeLineTemplate = "StoreLine"

	// Store multipliers are written per-mille on the wiki.
	storeMultiplierScale = 1000
)

// ShopExtractor turns shop-tagged pages into typed Shop records with their
// inventories resolved against the item set.
type ShopExtractor struct {
	reporter
	repo     pages.Repository
	resolver *Resolver
}

func NewShopExtractor(repo pages.Repository, resolver *Resolver, logger *logrus.Logger, hub *sentry.Hub) (*ShopExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if resolver == nil {
		return nil, eris.New("item resolver is required")
	}

	return &ShopExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ExtractAll re-derives the full shop set from the persisted shop pages.
func (e *ShopExtractor) ExtractAll(ctx context.Context) ([]Shop, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagShop)
	if err != nil {
		return nil, eris.Wrap(err, "listing shop pages")
	}

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting shops")

	var shops []Shop
	for i := range tagged {
		if shop := e.extractFromPage(&tagged[i]); shop != nil {
			shops = append(shops, *shop)
		}
	}

	sort.Slice(shops, func(a, b int) bool { return shops[a].Name < shops[b].Name })

	e.logInfo(logrus.Fields{"shops": len(shops)}, "shop extraction complete")
	return shops, nil
}

func (e *ShopExtractor) extractFromPage(page *pages.Page) *Shop {
	if page.Text == "" {
		return nil
	}

	shop := Shop{Name: page.Title, PageID: page.ID}
	seenHead := false

	for _, template := range wikitext.ParseTemplates(page.Text) {
		switch {
		case template.Is(storeHeadTemplate):
			seenHead = true
			shop.SellPercent = looseFloat(template.Get("sellmultiplier")) / storeMultiplierScale
			shop.BuyPercent = looseFloat(template.Get("buymultiplier")) / storeMultiplierScale
			shop.BuyChangePercent = looseFloat(template.Get("delta")) / storeMultiplierScale

		case template.Is(storeLineTemplate):
			name := template.Get("name")
			id, resolved := e.resolver.ResolveID(name)
			if !resolved {
				e.logWarn(logrus.Fields{
					"page_id": page.ID,
					"shop":    shop.Name,
					"item":    name,
				}, "shop inventory item did not resolve, line dropped")
				continue
			}
			shop.Inventory = append(shop.Inventory, ShopItem{
				ItemID:       id,
				BaseQuantity: looseInt(template.Get("stock")),
				RestockTime:  looseInt(template.Get("restock")),
			})
		}
	}

	if !seenHead && len(shop.Inventory) == 0 {
		return nil
	}
	return &shop
}
