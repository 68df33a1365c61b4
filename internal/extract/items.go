package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wiki"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const (
	itemInfoboxName    = "Infobox Item"
	bonusesSectionMark = "==Combat stats=="
	geLimitsModulePath = "/w/Module:GELimits/data.json?action=raw"
	coinsItemID        = 995
)

// ExclusionRules mark item pages describing content absent from the main
// game. This is a deliberate allow-list of known markers, expected to grow;
// it is configuration rather than core extraction logic.
type ExclusionRules struct {
	ParamKeys     []string
	TitleParts    []string
	TitlePrefixes []string
	TextMarkers   []string
}

// DefaultExclusionRules covers removed, beta, seasonal and discontinued
// content markers observed in the source.
var DefaultExclusionRules = ExclusionRules{
	ParamKeys:     []string{"removal"},
	TitleParts:    []string{"Redundant"},
	TitlePrefixes: []string{"Sigil"},
	TextMarkers:   []string{"{{Deadman seasonal}}", "{{Beta}}", "{{Gone"},
}

func (rules ExclusionRules) inMainGame(page *pages.Page, infobox *wikitext.Template) bool {
	for _, key := range rules.ParamKeys {
		if _, found := infobox.Params[key]; found {
			return false
		}
	}
	for _, part := range rules.TitleParts {
		if strings.Contains(page.Title, part) {
			return false
		}
	}
	for _, prefix := range rules.TitlePrefixes {
		if strings.HasPrefix(page.Title, prefix) {
			return false
		}
	}
	for _, marker := range rules.TextMarkers {
		if strings.Contains(page.Text, marker) {
			return false
		}
	}
	return true
}

// ItemExtractor turns item-tagged pages into typed Item records.
type ItemExtractor struct {
	reporter
	repo        pages.Repository
	client      *wiki.Client
	rules       ExclusionRules
	geLimitsURL string
}

// NewItemExtractor wires the item extractor with its dependencies. The wiki
// client is optional; without it the Grand Exchange buy limits are skipped.
func NewItemExtractor(repo pages.Repository, client *wiki.Client, logger *logrus.Logger, hub *sentry.Hub) (*ItemExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}

	extractor := &ItemExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		client:   client,
		rules:    DefaultExclusionRules,
	}
	if client != nil {
		// The limits module lives next to the API endpoint.
		extractor.geLimitsURL = strings.TrimSuffix(client.BaseURL(), "/api.php") + geLimitsModulePath
	}
	return extractor, nil
}

// ExtractAll re-derives the full item set from the persisted item pages.
func (e *ItemExtractor) ExtractAll(ctx context.Context) ([]Item, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagItem)
	if err != nil {
		return nil, eris.Wrap(err, "listing item pages")
	}

	limits := e.fetchGELimits(ctx)

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting items")

	var items []Item
	for i := range tagged {
		items = append(items, e.extractFromPage(&tagged[i], limits)...)
	}

	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })

	e.logInfo(logrus.Fields{"items": len(items)}, "item extraction complete")
	return items, nil
}

// fetchGELimits loads the Grand Exchange buy-limit module, keyed by exchange
// item name. A failed fetch degrades to no limits.
func (e *ItemExtractor) fetchGELimits(ctx context.Context) map[string]int {
	if e.client == nil {
		return nil
	}

	limits := make(map[string]int)
	if err := e.client.RawJSON(ctx, e.geLimitsURL, &limits); err != nil {
		e.recordError(nil, err, "fetching buy limits, continuing without them")
		return nil
	}
	return limits
}

// itemFields is the per-field coercion table applied during variant
// expansion. Unrecognised suffixed keys are dropped.
var itemFields = map[string]func(item *Item, value string){
	"id":        func(item *Item, value string) { item.ID = looseInt(value) },
	"name":      func(item *Item, value string) { item.Name = value },
	"gemwname":  func(item *Item, value string) { item.Name = value },
	"examine":   func(item *Item, value string) { item.Examine = value },
	"image":     func(item *Item, value string) { item.Image = value },
	"destroy":   func(item *Item, value string) { item.Drop = value },
	"value":     func(item *Item, value string) { item.Value = looseInt(value) },
	"weight":    func(item *Item, value string) { item.Weight = looseFloat(value) },
	"members":   func(item *Item, value string) { item.IsMembers = yesBool(value) },
	"tradeable": func(item *Item, value string) { item.IsTradeable = yesBool(value) },
	"equipable": func(item *Item, value string) { item.IsEquipable = yesBool(value) },
	"stackable": func(item *Item, value string) { item.IsStackable = yesBool(value) },
	"exchange":  func(item *Item, value string) { item.IsOnGrandExchange = yesBool(value) },
	"alchable":  func(item *Item, value string) { item.IsAlchable = yesBool(value) },
}

func (e *ItemExtractor) extractFromPage(page *pages.Page, limits map[string]int) []Item {
	if page.Text == "" || !strings.Contains(page.Text, "{{"+itemInfoboxName) {
		return nil
	}

	infobox := wikitext.FirstTemplate(page.Text, itemInfoboxName)
	if infobox == nil || len(infobox.Params) == 0 {
		e.logWarn(logrus.Fields{"page_id": page.ID, "title": page.Title}, "item infobox did not parse")
		return nil
	}

	base := Item{
		Aliases:      page.Aliases,
		RelatedItems: []int{},
		IsInMainGame: e.rules.inMainGame(page, infobox),
	}
	for key, apply := range itemFields {
		if value, found := infobox.Params[key]; found && key != "gemwname" {
			apply(&base, value)
		}
	}
	// The exchange name wins over the display name when present.
	if gemw := infobox.Get("gemwname"); gemw != "" {
		base.Name = gemw
	}
	base.EquipmentStats = extractEquipmentStats(page.Text)
	base.BuyLimit = limits[base.Name]

	if !hasVariantKeys(infobox.Params) {
		if base.ID == 0 {
			return nil
		}
		return []Item{base}
	}

	variants := make(map[int]*Item)
	variantAt := func(index int) *Item {
		if variants[index] == nil {
			clone := base
			clone.ID = 0
			variants[index] = &clone
		}
		return variants[index]
	}

	for key, value := range infobox.Params {
		baseKey, index := variantKey(key)
		if index == 0 {
			continue
		}
		apply, known := itemFields[baseKey]
		if !known {
			continue
		}
		apply(variantAt(index), value)
	}

	// Pages occasionally describe the first variant with the unsuffixed keys
	// only. Keep it when it carries its own id.
	if variants[1] == nil && base.ID != 0 {
		clone := base
		variants[1] = &clone
	}

	indexes := make([]int, 0, len(variants))
	for index := range variants {
		if variants[index].ID != 0 {
			indexes = append(indexes, index)
		}
	}
	sort.Ints(indexes)

	ids := make([]int, 0, len(indexes))
	for _, index := range indexes {
		ids = append(ids, variants[index].ID)
	}

	result := make([]Item, 0, len(indexes))
	for _, index := range indexes {
		variant := variants[index]
		variant.RelatedItems = siblingsOf(ids, variant.ID)
		if variant.BuyLimit == 0 {
			variant.BuyLimit = limits[variant.Name]
		}
		result = append(result, *variant)
	}

	return result
}

// siblingsOf returns every id except the variant's own.
func siblingsOf(ids []int, own int) []int {
	siblings := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != own {
			siblings = append(siblings, id)
		}
	}
	return siblings
}

// extractEquipmentStats parses the bonuses infobox in the combat stats
// section, when the page has one.
func extractEquipmentStats(text string) *EquipmentStats {
	_, section, found := strings.Cut(text, bonusesSectionMark)
	if !found {
		return nil
	}

	templates := wikitext.ParseTemplates(section)
	if len(templates) == 0 {
		return nil
	}

	bonuses := templates[0]
	return &EquipmentStats{
		AttackStab:     looseInt(bonuses.Get("astab")),
		AttackSlash:    looseInt(bonuses.Get("aslash")),
		AttackCrush:    looseInt(bonuses.Get("acrush")),
		AttackMagic:    looseInt(bonuses.Get("amagic")),
		AttackRanged:   looseInt(bonuses.Get("arange")),
		DefendStab:     looseInt(bonuses.Get("dstab")),
		DefendSlash:    looseInt(bonuses.Get("dslash")),
		DefendCrush:    looseInt(bonuses.Get("dcrush")),
		DefendMagic:    looseInt(bonuses.Get("dmagic")),
		DefendRanged:   looseInt(bonuses.Get("drange")),
		Strength:       looseInt(bonuses.Get("str")),
		RangedStrength: looseInt(bonuses.Get("rstr")),
		MagicDamage:    looseInt(bonuses.Get("mdmg")),
		Prayer:         looseInt(bonuses.Get("prayer")),
		Slot:           bonuses.Get("slot"),
		Speed:          looseInt(bonuses.Get("speed")),
		AttackRange:    looseInt(bonuses.Get("attackrange")),
		CombatStyle:    bonuses.Get("combatstyle"),
	}
}
