package extract

import "testing"

func TestResolverPrefersMainGameItemOnCollision(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: 1, Name: "Torch", IsInMainGame: false, IsTradeable: true},
		{ID: 2, Name: "Torch", IsInMainGame: true, IsTradeable: true},
	}

	resolver := NewResolver(items, DefaultResolverWeights)

	resolved := resolver.Resolve("Torch")
	if resolved == nil || resolved.ID != 2 {
		t.Fatalf("expected main-game item to win, got %#v", resolved)
	}
}

func TestResolverCollisionOrderIndependent(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: 2, Name: "Torch", IsInMainGame: true, IsTradeable: true},
		{ID: 1, Name: "Torch", IsInMainGame: false},
	}

	resolver := NewResolver(items, DefaultResolverWeights)

	resolved := resolver.Resolve("Torch")
	if resolved == nil || resolved.ID != 2 {
		t.Fatalf("expected main-game item to keep the slot, got %#v", resolved)
	}
}

func TestResolverRepairsUnterminatedParenthesisAlias(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: 1704, Name: "Amulet of glory (t4)", Aliases: []string{"Amulet of glory (t"}},
	}

	resolver := NewResolver(items, DefaultResolverWeights)

	if resolver.Resolve("Amulet of glory (t") == nil {
		t.Fatalf("expected raw alias to resolve")
	}
	if resolver.Resolve("Amulet of glory (t)") == nil {
		t.Fatalf("expected repaired alias to resolve")
	}
}

func TestResolverFallsBackToFileDerivedName(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: 1935, Name: "Jug of water", Image: "File:Jug of water.png"},
	}

	resolver := NewResolver(items, DefaultResolverWeights)

	// No alias matches; the file-derived index carries the lookup.
	if id, ok := resolver.ResolveID("Jug of water"); !ok || id != 1935 {
		t.Fatalf("expected canonical name hit, got %d %v", id, ok)
	}

	items2 := []Item{
		{ID: 1936, Name: "Jug of wine", Image: "File:Old jug art.png"},
	}
	resolver2 := NewResolver(items2, DefaultResolverWeights)
	if id, ok := resolver2.ResolveID("Old jug art"); !ok || id != 1936 {
		t.Fatalf("expected file-derived name hit, got %d %v", id, ok)
	}
}

func TestResolverOrderCanonicalBeforeAlias(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: 10, Name: "Bones"},
		{ID: 11, Name: "Big bones", Aliases: []string{"Bones"}},
	}

	resolver := NewResolver(items, DefaultResolverWeights)

	resolved := resolver.Resolve("Bones")
	if resolved == nil || resolved.ID != 10 {
		t.Fatalf("expected canonical name to win over alias, got %#v", resolved)
	}
}

func TestResolverUnknownNameReturnsNil(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(nil, DefaultResolverWeights)

	if resolver.Resolve("Ghost item") != nil {
		t.Fatalf("expected nil for unknown name")
	}
	if _, ok := resolver.ResolveID(""); ok {
		t.Fatalf("expected empty name to be unresolved")
	}
}
