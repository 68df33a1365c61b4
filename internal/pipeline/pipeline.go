// Package pipeline drives the two-phase run: refresh the page catalog from
// the wiki, then extract typed records from the stored content into JSON
// artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/catalog"
	"github.com/Flipping-Utilities/parsed-osrs/internal/contentsync"
	"github.com/Flipping-Utilities/parsed-osrs/internal/export"
	"github.com/Flipping-Utilities/parsed-osrs/internal/extract"
	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wiki"
)

// taggedCategories binds each wiki category to the extractor tag its members
// get.
var taggedCategories = []struct {
	category string
	tag      string
}{
	{catalog.CategoryItems, pages.TagItem},
	{catalog.CategoryGEItems, pages.TagGEItem},
	{catalog.CategoryItemSets, pages.TagSet},
	{catalog.CategoryShops, pages.TagShop},
	{catalog.CategoryMonsters, pages.TagMonster},
}

// Pipeline owns the full refresh-then-extract sequence.
type Pipeline struct {
	client  *wiki.Client
	repo    pages.Repository
	catalog *catalog.Catalog
	syncer  *contentsync.Syncer
	writer  *export.Writer
	logger  *logrus.Logger
	hub     *sentry.Hub
}

// New wires the pipeline and its internal stages.
func New(client *wiki.Client, repo pages.Repository, writer *export.Writer, logger *logrus.Logger, hub *sentry.Hub) (*Pipeline, error) {
	if client == nil {
		return nil, eris.New("wiki client is required")
	}
	if repo == nil {
		return nil, eris.New("page repository is required")
	}
	if writer == nil {
		return nil, eris.New("export writer is required")
	}

	cat, err := catalog.New(client, repo, logger, hub)
	if err != nil {
		return nil, err
	}
	syncer, err := contentsync.New(client, repo, logger, hub)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		client:  client,
		repo:    repo,
		catalog: cat,
		syncer:  syncer,
		writer:  writer,
		logger:  logger,
		hub:     hub,
	}, nil
}

// Refresh brings the local page catalog up to date with the wiki: page
// discovery, category and template tagging, redirect aliases, then a content
// fetch for every stale page.
func (p *Pipeline) Refresh(ctx context.Context) error {
	if _, err := p.catalog.DiscoverAllPages(ctx); err != nil {
		return eris.Wrap(err, "discovering pages")
	}

	for _, binding := range taggedCategories {
		if _, err := p.catalog.DiscoverCategory(ctx, binding.category, binding.tag); err != nil {
			return eris.Wrapf(err, "discovering category: %s", binding.category)
		}
	}

	if _, err := p.catalog.DiscoverTemplateUsage(ctx, catalog.TemplateSpawn, pages.TagItemSpawn); err != nil {
		return eris.Wrapf(err, "discovering template usage: %s", catalog.TemplateSpawn)
	}

	if err := p.catalog.ResolveRedirects(ctx); err != nil {
		return eris.Wrap(err, "resolving redirects")
	}

	stats, err := p.syncer.SyncStale(ctx)
	if err != nil {
		return eris.Wrap(err, "syncing stale content")
	}

	p.logInfo(logrus.Fields{
		"fetched": stats.Fetched,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	}, "catalog refresh complete")
	return nil
}

// Extract re-derives every record family from the stored pages and writes
// the JSON artifacts. Items come first: all later families resolve item
// references through them.
func (p *Pipeline) Extract(ctx context.Context) error {
	manifest := p.writer.Begin()

	itemExtractor, err := extract.NewItemExtractor(p.repo, p.client, p.logger, p.hub)
	if err != nil {
		return err
	}
	items, err := itemExtractor.ExtractAll(ctx)
	if err != nil {
		return eris.Wrap(err, "extracting items")
	}
	if err := p.writer.WriteArtifact(manifest, "items", items, len(items)); err != nil {
		return err
	}

	resolver := extract.NewResolver(items, extract.DefaultResolverWeights)

	setExtractor, err := extract.NewSetExtractor(p.repo, resolver, p.logger, p.hub)
	if err != nil {
		return err
	}
	sets, err := setExtractor.ExtractAll(ctx)
	if err != nil {
		return eris.Wrap(err, "extracting item sets")
	}
	if err := p.writer.WriteArtifact(manifest, "sets", sets, len(sets)); err != nil {
		return err
	}

	monsterExtractor, err := extract.NewMonsterExtractor(p.repo, resolver, p.logger, p.hub)
	if err != nil {
		return err
	}
	monsters, err := monsterExtractor.ExtractAll(ctx)
	if err != nil {
		return eris.Wrap(err, "extracting monsters")
	}
	if err := p.writer.WriteArtifact(manifest, "monsters", monsters, len(monsters)); err != nil {
		return err
	}

	shopExtractor, err := extract.NewShopExtractor(p.repo, resolver, p.logger, p.hub)
	if err != nil {
		return err
	}
	shops, err := shopExtractor.ExtractAll(ctx)
	if err != nil {
		return eris.Wrap(err, "extracting shops")
	}
	if err := p.writer.WriteArtifact(manifest, "shops", shops, len(shops)); err != nil {
		return err
	}

	recipeExtractor, err := extract.NewRecipeExtractor(p.repo, resolver, p.logger, p.hub)
	if err != nil {
		return err
	}
	recipes, err := recipeExtractor.ExtractAll(ctx, sets)
	if err != nil {
		return eris.Wrap(err, "extracting recipes")
	}
	if err := p.writer.WriteArtifact(manifest, "recipes", recipes, len(recipes)); err != nil {
		return err
	}

	spawnExtractor, err := extract.NewSpawnExtractor(p.repo, resolver, p.logger, p.hub)
	if err != nil {
		return err
	}
	spawns, err := spawnExtractor.ExtractAll(ctx)
	if err != nil {
		return eris.Wrap(err, "extracting item spawns")
	}
	if err := p.writer.WriteArtifact(manifest, "item-spawns", spawns, len(spawns)); err != nil {
		return err
	}

	geItems, err := p.geItemIndex(ctx)
	if err != nil {
		return err
	}
	if err := p.writer.WriteArtifact(manifest, "ge-items", geItems, len(geItems)); err != nil {
		return err
	}

	return p.writer.Finish(manifest)
}

// ImportDump seeds the page catalog from a MediaWiki XML export instead of
// crawling, leaving every imported page stale for the next refresh.
func (p *Pipeline) ImportDump(ctx context.Context, reader io.Reader) (int, error) {
	return p.syncer.ImportDump(ctx, reader)
}

// pageDump is the on-disk shape of one raw page file.
type pageDump struct {
	ID         int    `json:"pageid"`
	Title      string `json:"title"`
	RevisionID int    `json:"revid"`
	Text       string `json:"wikitext"`
	HTML       string `json:"html,omitempty"`
}

// DumpPages writes the raw stored content of every page with fetched text to
// one JSON file per page under dir, keyed by page id. Pages without content
// are skipped.
func (p *Pipeline) DumpPages(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, eris.New("dump directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, eris.Wrapf(err, "creating dump directory: %s", dir)
	}

	all, err := p.repo.ListAll(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "listing pages")
	}

	written := 0
	for _, page := range all {
		if err := ctx.Err(); err != nil {
			return written, eris.Wrap(err, "page dump interrupted")
		}
		if page.Text == "" {
			continue
		}

		payload, err := json.MarshalIndent(pageDump{
			ID:         page.ID,
			Title:      page.Title,
			RevisionID: page.RevisionID,
			Text:       page.Text,
			HTML:       page.HTML,
		}, "", "  ")
		if err != nil {
			return written, eris.Wrapf(err, "encoding page: %d", page.ID)
		}

		target := filepath.Join(dir, strconv.Itoa(page.ID)+".json")
		if err := os.WriteFile(target, payload, 0o644); err != nil {
			return written, eris.Wrapf(err, "writing page file: %s", target)
		}
		written++
	}

	p.logInfo(logrus.Fields{"pages": written, "dir": dir}, "page dump complete")
	return written, nil
}

// Run performs a full refresh followed by extraction.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		return err
	}
	return p.Extract(ctx)
}

// geItemIndex lists the pages tagged as Grand Exchange items as a slim
// id/title index.
func (p *Pipeline) geItemIndex(ctx context.Context) ([]pages.PageSlim, error) {
	tagged, err := p.repo.ListByTag(ctx, pages.TagGEItem)
	if err != nil {
		return nil, eris.Wrap(err, "listing exchange item pages")
	}

	slims := make([]pages.PageSlim, 0, len(tagged))
	for _, page := range tagged {
		slims = append(slims, pages.PageSlim{ID: page.ID, Title: page.Title})
	}
	return slims, nil
}

func (p *Pipeline) logInfo(fields logrus.Fields, message string) {
	if p.logger == nil {
		return
	}
	p.logger.WithFields(fields).Info(message)
}
