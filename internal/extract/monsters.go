package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const monsterInfoboxName = "Infobox Monster"

// MonsterExtractor turns monster-tagged pages into typed Monster records.
// Drop tables are read from the rendered HTML, item references resolved
// against the item set.
type MonsterExtractor struct {
	reporter
	repo     pages.Repository
	resolver *Resolver
}

func NewMonsterExtractor(repo pages.Repository, resolver *Resolver, logger *logrus.Logger, hub *sentry.Hub) (*MonsterExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if resolver == nil {
		return nil, eris.New("item resolver is required")
	}

	return &MonsterExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ExtractAll re-derives the full monster set from the persisted monster pages.
func (e *MonsterExtractor) ExtractAll(ctx context.Context) ([]Monster, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagMonster)
	if err != nil {
		return nil, eris.Wrap(err, "listing monster pages")
	}

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting monsters")

	var monsters []Monster
	for i := range tagged {
		monsters = append(monsters, e.extractFromPage(&tagged[i])...)
	}

	sort.Slice(monsters, func(a, b int) bool {
		if monsters[a].Name != monsters[b].Name {
			return monsters[a].Name < monsters[b].Name
		}
		return monsters[a].ID < monsters[b].ID
	})

	e.logInfo(logrus.Fields{"monsters": len(monsters)}, "monster extraction complete")
	return monsters, nil
}

// monsterFields is the per-field coercion table shared by base and variant
// key application.
var monsterFields = map[string]func(monster *Monster, value string){
	"id": func(monster *Monster, value string) {
		monster.IDs = idList(value)
		if len(monster.IDs) > 0 {
			monster.ID = monster.IDs[0]
		}
	},
	"name":         func(monster *Monster, value string) { monster.Name = value },
	"version":      func(monster *Monster, value string) { monster.Version = value },
	"image":        func(monster *Monster, value string) { monster.Image = value },
	"members":      func(monster *Monster, value string) { monster.Members = yesBool(value) },
	"combat":       func(monster *Monster, value string) { monster.Level = looseInt(value) },
	"size":         func(monster *Monster, value string) { monster.Size = looseInt(value) },
	"examine":      func(monster *Monster, value string) { monster.Examine = value },
	"xpbonus":      func(monster *Monster, value string) { monster.XPBonus = looseFloat(value) },
	"max hit":      func(monster *Monster, value string) { monster.MaxHit = looseInt(value) },
	"aggressive":   func(monster *Monster, value string) { monster.Aggressive = yesBool(value) },
	"poisonous":    func(monster *Monster, value string) { monster.Poisonous = yesBool(value) },
	"attack style": func(monster *Monster, value string) { monster.AttackStyle = value },
	"attack speed": func(monster *Monster, value string) { monster.AttackSpeed = looseInt(value) },
	"slayxp":       func(monster *Monster, value string) { monster.SlayerXP = looseFloat(value) },
	"cat":          func(monster *Monster, value string) { monster.Category = value },
	"hitpoints":    func(monster *Monster, value string) { monster.Hitpoints = looseInt(value) },
	"respawn":      func(monster *Monster, value string) { monster.RespawnTime = looseInt(value) },
	"dropversion":  func(monster *Monster, value string) { monster.DropVersion = value },
	"assignedby": func(monster *Monster, value string) {
		monster.AssignedBy = nil
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				monster.AssignedBy = append(monster.AssignedBy, part)
			}
		}
	},
	"att":          func(monster *Monster, value string) { monster.CombatStats.Attack = looseInt(value) },
	"str":          func(monster *Monster, value string) { monster.CombatStats.Strength = looseInt(value) },
	"def":          func(monster *Monster, value string) { monster.CombatStats.Defence = looseInt(value) },
	"mage":         func(monster *Monster, value string) { monster.CombatStats.Magic = looseInt(value) },
	"range":        func(monster *Monster, value string) { monster.CombatStats.Ranged = looseInt(value) },
	"attbns":       func(monster *Monster, value string) { monster.CombatStats.AttackBonus = looseInt(value) },
	"strbns":       func(monster *Monster, value string) { monster.CombatStats.StrengthBonus = looseInt(value) },
	"amagic":       func(monster *Monster, value string) { monster.CombatStats.AttackMagic = looseInt(value) },
	"mbns":         func(monster *Monster, value string) { monster.CombatStats.MagicBonus = looseInt(value) },
	"arange":       func(monster *Monster, value string) { monster.CombatStats.AttackRanged = looseInt(value) },
	"rngbns":       func(monster *Monster, value string) { monster.CombatStats.RangedBonus = looseInt(value) },
	"dstab":        func(monster *Monster, value string) { monster.CombatStats.DefenceStab = looseInt(value) },
	"dslash":       func(monster *Monster, value string) { monster.CombatStats.DefenceSlash = looseInt(value) },
	"dcrush":       func(monster *Monster, value string) { monster.CombatStats.DefenceCrush = looseInt(value) },
	"dmagic":       func(monster *Monster, value string) { monster.CombatStats.DefenceMagic = looseInt(value) },
	"drange":       func(monster *Monster, value string) { monster.CombatStats.DefenceRanged = looseInt(value) },
	"immunepoison": func(monster *Monster, value string) { monster.CombatStats.ImmunePoison = immuneBool(value) },
	"immunevenom":  func(monster *Monster, value string) { monster.CombatStats.ImmuneVenom = immuneBool(value) },
	"immunecannon": func(monster *Monster, value string) { monster.CombatStats.ImmuneCannon = immuneBool(value) },
	"immunethrall": func(monster *Monster, value string) { monster.CombatStats.ImmuneThrall = immuneBool(value) },
}

func (e *MonsterExtractor) extractFromPage(page *pages.Page) []Monster {
	if page.Text == "" || !strings.Contains(page.Text, "{{"+monsterInfoboxName) {
		return nil
	}

	infobox := wikitext.FirstTemplate(page.Text, monsterInfoboxName)
	if infobox == nil || len(infobox.Params) == 0 {
		e.logWarn(logrus.Fields{"page_id": page.ID, "title": page.Title}, "monster infobox did not parse")
		return nil
	}

	base := Monster{Aliases: page.Aliases}
	for key, value := range infobox.Params {
		if apply, known := monsterFields[key]; known {
			apply(&base, value)
		}
	}

	drops := e.extractDrops(page)

	if !hasVariantKeys(infobox.Params) {
		if len(base.IDs) == 0 {
			return nil
		}
		base.Drops = drops
		return []Monster{base}
	}

	variants := make(map[int]*Monster)
	variantAt := func(index int) *Monster {
		if variants[index] == nil {
			clone := base
			clone.ID = 0
			clone.IDs = nil
			variants[index] = &clone
		}
		return variants[index]
	}

	for key, value := range infobox.Params {
		baseKey, index := variantKey(key)
		if index == 0 {
			continue
		}
		apply, known := monsterFields[baseKey]
		if !known {
			continue
		}
		apply(variantAt(index), value)
	}

	if variants[1] == nil && len(base.IDs) > 0 {
		clone := base
		variants[1] = &clone
	}

	indexes := make([]int, 0, len(variants))
	for index := range variants {
		if len(variants[index].IDs) > 0 {
			indexes = append(indexes, index)
		}
	}
	sort.Ints(indexes)

	result := make([]Monster, 0, len(indexes))
	for _, index := range indexes {
		variant := variants[index]
		variant.Drops = drops
		result = append(result, *variant)
	}

	return result
}

// extractDrops parses the rendered drop tables out of the page HTML. Lines
// whose item name does not resolve keep a nil ItemID.
func (e *MonsterExtractor) extractDrops(page *pages.Page) []MonsterDrop {
	if page.HTML == "" {
		return nil
	}

	document, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		e.recordError(logrus.Fields{"page_id": page.ID, "title": page.Title}, err, "parsing drop table html")
		return nil
	}

	var drops []MonsterDrop
	document.Find("table.item-drops tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		name := cleanDropCell(cells.Eq(1).Text())
		if name == "" {
			return
		}

		drop := MonsterDrop{
			Name:     name,
			Quantity: cleanDropCell(cells.Eq(2).Text()),
			Rarity:   cleanDropCell(cells.Eq(3).Text()),
		}
		if item := e.resolver.Resolve(name); item != nil {
			id := item.ID
			drop.ItemID = &id
		} else {
			e.logWarn(logrus.Fields{"page_id": page.ID, "drop": name}, "drop item did not resolve, kept without id")
		}
		drops = append(drops, drop)
	})

	return drops
}

// cleanDropCell strips footnote markers ("Coins[d]") and trailing commas off
// a drop-table cell.
func cleanDropCell(text string) string {
	text = strings.TrimSpace(text)
	if cut := strings.Index(text, "["); cut >= 0 {
		text = text[:cut]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ",")
}
