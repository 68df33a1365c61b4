package catalog

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wiki"
)

// Source category and template names on the wiki itself.
const (
	CategoryItems    = "Items"
	CategoryGEItems  = "Grand Exchange items"
	CategoryItemSets = "Item sets"
	CategoryShops    = "Shops"
	CategoryMonsters = "Monsters"
	TemplateSpawn    = "ItemSpawnLine"
)

// redirectChunkSize bounds how many titles go into one prop=redirects query.
const redirectChunkSize = 50

// Catalog discovers the universe of wiki pages, maintains the canonical page
// registry and augments it with redirect aliases.
type Catalog struct {
	client *wiki.Client
	repo   pages.Repository
	logger *logrus.Logger
	hub    *sentry.Hub
}

// New wires the page catalog with its dependencies.
func New(client *wiki.Client, repo pages.Repository, logger *logrus.Logger, hub *sentry.Hub) (*Catalog, error) {
	if client == nil {
		return nil, eris.New("wiki client is required")
	}
	if repo == nil {
		return nil, eris.New("page repository is required")
	}

	return &Catalog{client: client, repo: repo, logger: logger, hub: hub}, nil
}

// DiscoverAllPages crawls the full non-redirect content namespace above a
// minimum size threshold and registers every page as a slim record.
func (c *Catalog) DiscoverAllPages(ctx context.Context) (int, error) {
	slims, err := c.client.QueryAllSlim(ctx, "apcontinue", "allpages", map[string]string{
		"action":        "query",
		"list":          "allpages",
		"aplimit":       "max",
		"apfilterredir": "nonredirects",
		"apminsize":     "5",
	})
	if err != nil {
		// Keep whatever the crawl yielded before failing; the next run
		// picks up the remainder.
		c.recordError(nil, err, "crawling full page list")
	}

	if len(slims) == 0 {
		return 0, eris.New("page list crawl yielded no pages")
	}

	if upsertErr := c.repo.UpsertSlim(ctx, toSlimRecords(slims)); upsertErr != nil {
		c.recordError(logrus.Fields{"count": len(slims)}, upsertErr, "registering discovered pages")
		return 0, eris.Wrap(upsertErr, "registering discovered pages")
	}

	c.logInfo(logrus.Fields{"count": len(slims)}, "registered page universe")
	return len(slims), nil
}

// DiscoverCategory crawls one category's membership, registers the member
// pages and tags them. Pseudo-pages (category markers) are excluded.
func (c *Catalog) DiscoverCategory(ctx context.Context, category, tag string) (int, error) {
	slims, err := c.client.QueryAllSlim(ctx, "cmcontinue", "categorymembers", map[string]string{
		"action":  "query",
		"list":    "categorymembers",
		"cmtitle": "Category:" + strings.ReplaceAll(category, " ", "_"),
		"cmlimit": "max",
	})
	if err != nil {
		c.recordError(logrus.Fields{"category": category}, err, "crawling category members")
	}

	kept := make([]wiki.PageSlim, 0, len(slims))
	for _, slim := range slims {
		if strings.HasPrefix(slim.Title, "Category:") {
			continue
		}
		kept = append(kept, slim)
	}

	return len(kept), c.registerAndTag(ctx, kept, tag, logrus.Fields{"category": category, "tag": tag})
}

// DiscoverTemplateUsage crawls the pages embedding the named template,
// registers and tags them. Pages outside the main content namespace are
// excluded.
func (c *Catalog) DiscoverTemplateUsage(ctx context.Context, template, tag string) (int, error) {
	slims, err := c.client.QueryAllSlim(ctx, "eicontinue", "embeddedin", map[string]string{
		"action":  "query",
		"list":    "embeddedin",
		"eititle": "Template:" + template,
		"eilimit": "max",
	})
	if err != nil {
		c.recordError(logrus.Fields{"template": template}, err, "crawling template usage")
	}

	kept := make([]wiki.PageSlim, 0, len(slims))
	for _, slim := range slims {
		if strings.Contains(slim.Title, ":") {
			continue
		}
		kept = append(kept, slim)
	}

	return len(kept), c.registerAndTag(ctx, kept, tag, logrus.Fields{"template": template, "tag": tag})
}

func (c *Catalog) registerAndTag(ctx context.Context, slims []wiki.PageSlim, tag string, fields logrus.Fields) error {
	if len(slims) == 0 {
		return nil
	}

	if err := c.repo.UpsertSlim(ctx, toSlimRecords(slims)); err != nil {
		c.recordError(fields, err, "registering discovered pages")
		return eris.Wrap(err, "registering discovered pages")
	}

	ids := make([]int, 0, len(slims))
	for _, slim := range slims {
		ids = append(ids, slim.ID)
	}

	if err := c.repo.TagPages(ctx, ids, tag); err != nil {
		// The whole tag batch is dropped; pages get re-tagged next run.
		c.recordError(fields, err, "tagging discovered pages, batch dropped")
		return nil
	}

	c.logInfo(fields, "tagged discovered pages")
	return nil
}

// ResolveRedirects queries the redirect titles pointing at every catalogued
// page, in fixed-size chunks, and unions them into each page's alias list.
// Aliases are only ever appended, never removed.
func (c *Catalog) ResolveRedirects(ctx context.Context) error {
	all, err := c.repo.ListAll(ctx)
	if err != nil {
		return eris.Wrap(err, "listing catalogued pages")
	}

	byID := make(map[int]*pages.Page, len(all))
	titles := make([]string, 0, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
		titles = append(titles, all[i].Title)
	}

	impacted := make(map[int]struct{})
	for start := 0; start < len(titles); start += redirectChunkSize {
		end := start + redirectChunkSize
		if end > len(titles) {
			end = len(titles)
		}

		redirects, err := c.client.Redirects(ctx, titles[start:end])
		if err != nil {
			c.recordError(logrus.Fields{"chunk_start": start}, err, "querying redirect chunk")
			continue
		}

		for pageID, redirectTitles := range redirects {
			page, ok := byID[pageID]
			if !ok {
				continue
			}
			for _, title := range redirectTitles {
				if !containsAlias(page.Aliases, title) {
					page.Aliases = append(page.Aliases, title)
					impacted[pageID] = struct{}{}
				}
			}
		}
	}

	if len(impacted) == 0 {
		c.logInfo(nil, "no new redirect aliases discovered")
		return nil
	}

	batch := make([]pages.Page, 0, len(impacted))
	for pageID := range impacted {
		batch = append(batch, *byID[pageID])
	}

	if err := c.repo.UpdateAliases(ctx, batch); err != nil {
		c.recordError(logrus.Fields{"count": len(batch)}, err, "persisting redirect aliases")
		return eris.Wrap(err, "persisting redirect aliases")
	}

	c.logInfo(logrus.Fields{"count": len(batch)}, "augmented pages with redirect aliases")
	return nil
}

func toSlimRecords(slims []wiki.PageSlim) []pages.PageSlim {
	records := make([]pages.PageSlim, 0, len(slims))
	for _, slim := range slims {
		records = append(records, pages.PageSlim{ID: slim.ID, Title: slim.Title})
	}
	return records
}

func containsAlias(aliases []string, candidate string) bool {
	for _, alias := range aliases {
		if alias == candidate {
			return true
		}
	}
	return false
}

func (c *Catalog) logInfo(fields logrus.Fields, message string) {
	if c.logger == nil {
		return
	}
	entry := c.logger.WithField("component", "catalog")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info(message)
}

func (c *Catalog) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if c.logger != nil {
		entry := c.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if c.hub != nil {
		c.hub.CaptureException(err)
	}
}
