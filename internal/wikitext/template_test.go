package wikitext

import "testing"

func TestParseTemplatesExtractsNamedParams(t *testing.T) {
	t.Parallel()

	text := "Intro text {{Infobox Item|id=1213|name=Torch|tradeable=Yes}} outro"

	templates := ParseTemplates(text)
	if len(templates) != 1 {
		t.Fatalf("expected one template, got %d", len(templates))
	}

	template := templates[0]
	if !template.Is("infobox item") {
		t.Fatalf("expected case-insensitive name match, got %q", template.Name)
	}
	if template.Get("id") != "1213" || template.Get("name") != "Torch" || template.Get("tradeable") != "Yes" {
		t.Fatalf("unexpected params %#v", template.Params)
	}
}

func TestParseTemplatesHandlesNestedBracesAndLinks(t *testing.T) {
	t.Parallel()

	text := "{{ItemSpawnLine|name=Astronomy book|location=[[Observatory]] west of [[Tree Gnome Village (location)|Tree Gnome Village]]|members=Yes|2438,3187}}"

	templates := ParseTemplates(text)
	if len(templates) != 1 {
		t.Fatalf("expected one template, got %d", len(templates))
	}

	template := templates[0]
	if template.Get("location") != "[[Observatory]] west of [[Tree Gnome Village (location)|Tree Gnome Village]]" {
		t.Fatalf("piped link split incorrectly: %q", template.Get("location"))
	}
	if template.Get("1") != "2438,3187" {
		t.Fatalf("expected positional coordinate param, got %#v", template.Params)
	}
}

func TestParseTemplatesReturnsEveryTopLevelBlock(t *testing.T) {
	t.Parallel()

	text := `{{Recipe|skill1=Smithing|skill1lvl=20|mat1=Iron bar|output1=Iron dagger}}
Some prose.
{{Recipe|skill1=Cooking|mat1=Raw shrimps|output1=Shrimps}}`

	templates := ParseTemplates(text)
	if len(templates) != 2 {
		t.Fatalf("expected two templates, got %d", len(templates))
	}
	if templates[1].Get("skill1") != "Cooking" {
		t.Fatalf("unexpected second template %#v", templates[1].Params)
	}
}

func TestParseTemplatesIgnoresUnterminatedBlock(t *testing.T) {
	t.Parallel()

	text := "{{Infobox Item|id=4151|name=Abyssal whip}} {{Broken|id=1"

	templates := ParseTemplates(text)
	if len(templates) != 1 {
		t.Fatalf("expected only the well-formed template, got %d", len(templates))
	}
	if templates[0].Get("id") != "4151" {
		t.Fatalf("unexpected params %#v", templates[0].Params)
	}
}

func TestFirstTemplateFindsByName(t *testing.T) {
	t.Parallel()

	text := "{{Other|x=1}} {{Infobox Monster|id=2,3|name=Goblin}}"

	template := FirstTemplate(text, "Infobox Monster")
	if template == nil {
		t.Fatalf("expected to find monster infobox")
	}
	if template.Get("id") != "2,3" {
		t.Fatalf("unexpected params %#v", template.Params)
	}

	if FirstTemplate(text, "Infobox Item") != nil {
		t.Fatalf("expected no item infobox in text")
	}
}

func TestParseTemplatesTreatsEqualsInsideLinksAsPositional(t *testing.T) {
	t.Parallel()

	text := "{{CostLine|[[Mystic hat (blue)|Mystic hat]]}}"

	templates := ParseTemplates(text)
	if len(templates) != 1 {
		t.Fatalf("expected one template, got %d", len(templates))
	}
	if templates[0].Get("1") != "[[Mystic hat (blue)|Mystic hat]]" {
		t.Fatalf("unexpected positional param %#v", templates[0].Params)
	}
}
