package extract

import (
	"path"
	"strings"
)

// ResolverWeights are the disambiguation coefficients used when two items
// collide on the same lookup key. The defaults reproduce the historical
// ordering (main-game presence dominates); they are configuration, not core
// logic.
type ResolverWeights struct {
	MainGame  int
	Exchange  int
	Tradeable int
}

// DefaultResolverWeights is the standard disambiguation weighting.
var DefaultResolverWeights = ResolverWeights{MainGame: 3, Exchange: 1, Tradeable: 1}

// Resolver cross-links entity references by item name. It holds three
// immutable lookup indices built once per extraction run: canonical display
// names, redirect aliases, and names derived from image file references. The
// indices are read-only after construction, so a Resolver is safe for
// concurrent use.
type Resolver struct {
	byName  map[string]*Item
	byAlias map[string]*Item
	byFile  map[string]*Item
	byID    map[int]*Item
	weights ResolverWeights
}

// NewResolver builds the lookup indices over the resolved item set.
func NewResolver(items []Item, weights ResolverWeights) *Resolver {
	r := &Resolver{
		byName:  make(map[string]*Item, len(items)),
		byAlias: make(map[string]*Item),
		byFile:  make(map[string]*Item),
		byID:    make(map[int]*Item, len(items)),
		weights: weights,
	}

	for i := range items {
		item := &items[i]

		r.index(r.byName, item.Name, item)

		for _, alias := range item.Aliases {
			r.index(r.byAlias, alias, item)
			// Some redirect titles come through truncated with an open
			// parenthesis; index the repaired form as well.
			if strings.Count(alias, "(") > strings.Count(alias, ")") {
				r.index(r.byAlias, alias+")", item)
			}
		}

		if derived := fileBaseName(item.Image); derived != "" {
			r.index(r.byFile, derived, item)
		}

		if item.ID != 0 {
			if _, taken := r.byID[item.ID]; !taken {
				r.byID[item.ID] = item
			}
		}
	}

	return r
}

// index stores the item under the key unless a higher-weight item already
// holds the slot.
func (r *Resolver) index(m map[string]*Item, key string, item *Item) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}

	current, ok := m[key]
	if !ok || r.weight(item) > r.weight(current) {
		m[key] = item
	}
}

func (r *Resolver) weight(item *Item) int {
	score := 0
	if item.IsInMainGame {
		score += r.weights.MainGame
	}
	if item.IsOnGrandExchange {
		score += r.weights.Exchange
	}
	if item.IsTradeable {
		score += r.weights.Tradeable
	}
	return score
}

// Resolve looks a name up through the indices in fixed order: canonical name,
// alias, file-derived name. It returns nil when the name is unknown; callers
// must treat that as a dropped reference, never a fatal condition.
func (r *Resolver) Resolve(name string) *Item {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	if item, ok := r.byName[name]; ok {
		return item
	}
	if item, ok := r.byAlias[name]; ok {
		return item
	}
	if item, ok := r.byFile[name]; ok {
		return item
	}
	return nil
}

// ResolveID returns the item id for a name, or false when unresolved.
func (r *Resolver) ResolveID(name string) (int, bool) {
	item := r.Resolve(name)
	if item == nil {
		return 0, false
	}
	return item.ID, true
}

// ByID returns the item with the given id, or nil.
func (r *Resolver) ByID(id int) *Item {
	return r.byID[id]
}

// fileBaseName derives a plain item name from an image file reference such as
// "File:1-3rds full jug.png".
func fileBaseName(image string) string {
	trimmed := strings.TrimSpace(image)
	trimmed = strings.TrimPrefix(trimmed, "File:")
	if trimmed == "" {
		return ""
	}

	extension := path.Ext(trimmed)
	return strings.TrimSpace(strings.TrimSuffix(trimmed, extension))
}
