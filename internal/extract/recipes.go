package extract

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wikitext"
)

const (
	recipeTemplateName = "Recipe"

	// Coins never appear in the item infoboxes but are a valid recipe
	// material.
	coinsMaterialName = "Coins"

	setRecipeTicks = 1
)

// recipeKeyPattern splits indexed recipe keys such as "skill1lvl" or
// "mat2quantity" into group, slot and attribute.
var recipeKeyPattern = regexp.MustCompile(`^(skill|mat|output)(\d+)(lvl|exp|boostable|quantity|cost|itemnote|txt|subtxt)?$`)

// RecipeExtractor collects {{Recipe}} templates from the item pages and
// synthesizes assemble/disassemble recipes for every item set.
type RecipeExtractor struct {
	reporter
	repo     pages.Repository
	resolver *Resolver
}

func NewRecipeExtractor(repo pages.Repository, resolver *Resolver, logger *logrus.Logger, hub *sentry.Hub) (*RecipeExtractor, error) {
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if resolver == nil {
		return nil, eris.New("item resolver is required")
	}

	return &RecipeExtractor{
		reporter: reporter{logger: logger, hub: hub},
		repo:     repo,
		resolver: resolver,
	}, nil
}

// ExtractAll re-derives all recipes from the persisted item pages, then
// appends the synthetic set recipes.
func (e *RecipeExtractor) ExtractAll(ctx context.Context, sets []Set) ([]Recipe, error) {
	tagged, err := e.repo.ListByTag(ctx, pages.TagItem)
	if err != nil {
		return nil, eris.Wrap(err, "listing item pages")
	}

	e.logInfo(logrus.Fields{"pages": len(tagged)}, "extracting recipes")

	var recipes []Recipe
	for i := range tagged {
		recipes = append(recipes, e.extractFromPage(&tagged[i])...)
	}
	recipes = append(recipes, e.setRecipes(sets)...)

	sort.Slice(recipes, func(a, b int) bool { return recipes[a].Name < recipes[b].Name })

	e.logInfo(logrus.Fields{"recipes": len(recipes)}, "recipe extraction complete")
	return recipes, nil
}

func (e *RecipeExtractor) extractFromPage(page *pages.Page) []Recipe {
	if page.Text == "" || !strings.Contains(page.Text, "{{"+recipeTemplateName) {
		return nil
	}

	var recipes []Recipe
	for _, template := range wikitext.ParseTemplates(page.Text) {
		if !template.Is(recipeTemplateName) {
			continue
		}
		if recipe := e.buildRecipe(page, template); recipe != nil {
			recipes = append(recipes, *recipe)
		}
	}
	return recipes
}

// slotted accumulates indexed template params per slot before the slots are
// folded into ordered records.
type slotted map[int]map[string]string

func (s slotted) set(slot int, attribute, value string) {
	if s[slot] == nil {
		s[slot] = make(map[string]string)
	}
	s[slot][attribute] = value
}

func (s slotted) ordered() []map[string]string {
	slots := make([]int, 0, len(s))
	for slot := range s {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	records := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		records = append(records, s[slot])
	}
	return records
}

func (e *RecipeExtractor) buildRecipe(page *pages.Page, template wikitext.Template) *Recipe {
	skills := make(slotted)
	materials := make(slotted)
	outputs := make(slotted)

	for key, value := range template.Params {
		match := recipeKeyPattern.FindStringSubmatch(key)
		if match == nil {
			continue
		}

		slot, err := strconv.Atoi(match[2])
		if err != nil || slot == 0 {
			continue
		}
		attribute := match[3]
		if attribute == "" {
			attribute = "name"
		}

		switch match[1] {
		case "skill":
			skills.set(slot, attribute, value)
		case "mat":
			materials.set(slot, attribute, value)
		case "output":
			outputs.set(slot, attribute, value)
		}
	}

	recipe := Recipe{
		Name:      template.Get("name"),
		Members:   yesBool(template.Get("members")),
		TicksNote: template.Get("ticksnote"),
		Facility:  template.Get("facilities"),
		Notes:     template.Get("notes"),
	}
	if raw := strings.TrimSpace(template.Get("ticks")); raw != "" {
		if parsed, err := strconv.Atoi(strings.ReplaceAll(raw, ",", "")); err == nil {
			ticks := parsed
			recipe.Ticks = &ticks
		}
	}

	for _, record := range skills.ordered() {
		recipe.Skills = append(recipe.Skills, RecipeSkill{
			Name:      record["name"],
			Level:     looseInt(record["lvl"]),
			XP:        looseFloat(record["exp"]),
			Boostable: yesBool(record["boostable"]),
		})
	}

	recipe.Inputs = e.materialLines(page, materials.ordered())
	recipe.Outputs = e.materialLines(page, outputs.ordered())
	if len(recipe.Outputs) == 0 {
		return nil
	}

	for _, tool := range splitList(template.Get("tools")) {
		id, resolved := e.resolver.ResolveID(tool)
		if !resolved {
			e.logWarn(logrus.Fields{"page_id": page.ID, "tool": tool}, "recipe tool did not resolve, tool dropped")
			continue
		}
		recipe.ToolIDs = append(recipe.ToolIDs, id)
	}

	if recipe.Name == "" {
		recipe.Name = "Making " + template.Get("output1")
	}
	return &recipe
}

// materialLines resolves a slot group into material records. Unresolvable
// names drop their own line only.
func (e *RecipeExtractor) materialLines(page *pages.Page, records []map[string]string) []RecipeMaterial {
	var lines []RecipeMaterial
	for _, record := range records {
		name := strings.TrimSpace(record["name"])
		if name == "" {
			continue
		}

		id := coinsItemID
		if !strings.EqualFold(name, coinsMaterialName) {
			resolvedID, resolved := e.resolver.ResolveID(name)
			if !resolved {
				e.logWarn(logrus.Fields{"page_id": page.ID, "material": name}, "recipe material did not resolve, line dropped")
				continue
			}
			id = resolvedID
		}

		quantity := looseFloat(record["quantity"])
		if quantity == 0 {
			quantity = 1
		}

		lines = append(lines, RecipeMaterial{
			ID:       id,
			Quantity: quantity,
			Cost:     looseFloat(record["cost"]),
			Notes:    record["itemnote"],
			Text:     record["txt"],
			SubText:  record["subtxt"],
		})
	}
	return lines
}

// setRecipes synthesizes the assemble and disassemble recipes for item sets.
// Both take a single tick and need no skills.
func (e *RecipeExtractor) setRecipes(sets []Set) []Recipe {
	recipes := make([]Recipe, 0, 2*len(sets))
	for _, set := range sets {
		container := []RecipeMaterial{{ID: set.ID, Quantity: 1}}
		components := make([]RecipeMaterial, 0, len(set.ComponentIDs))
		for _, id := range set.ComponentIDs {
			components = append(components, RecipeMaterial{ID: id, Quantity: 1})
		}

		ticksAssemble, ticksBreak := setRecipeTicks, setRecipeTicks
		recipes = append(recipes,
			Recipe{
				Name:    "Making " + set.Name,
				Inputs:  components,
				Outputs: container,
				Skills:  []RecipeSkill{},
				Ticks:   &ticksAssemble,
			},
			Recipe{
				Name:    "Breaking " + set.Name,
				Inputs:  container,
				Outputs: components,
				Skills:  []RecipeSkill{},
				Ticks:   &ticksBreak,
			},
		)
	}
	return recipes
}

// splitList splits a comma-separated template value, dropping blanks.
func splitList(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
