package contentsync

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
	"github.com/Flipping-Utilities/parsed-osrs/internal/wiki"
)

// flushBatchSize bounds how many fetched pages accumulate in memory before a
// persistence flush. A failed flush loses at most one batch, and the affected
// pages stay stale for the next run.
const flushBatchSize = 25

// Stats summarises one sync pass.
type Stats struct {
	Fetched int
	Skipped int
	Failed  int
}

// Syncer keeps persisted page content fresh by revision comparison.
type Syncer struct {
	client *wiki.Client
	repo   pages.Repository
	logger *logrus.Logger
	hub    *sentry.Hub
}

// New wires the content syncer with its dependencies.
func New(client *wiki.Client, repo pages.Repository, logger *logrus.Logger, hub *sentry.Hub) (*Syncer, error) {
	if client == nil {
		return nil, eris.New("wiki client is required")
	}
	if repo == nil {
		return nil, eris.New("page repository is required")
	}

	return &Syncer{client: client, repo: repo, logger: logger, hub: hub}, nil
}

// SyncStale fetches full content for every page whose last full fetch lags
// its known revision. Pages already up to date are skipped without touching
// the network, so they consume no request slot. Fetch failures skip the page;
// the next run retries it.
func (s *Syncer) SyncStale(ctx context.Context) (Stats, error) {
	stale, err := s.repo.ListStale(ctx)
	if err != nil {
		return Stats{}, eris.Wrap(err, "listing stale pages")
	}

	s.logInfo(logrus.Fields{"count": len(stale)}, "starting content sync")

	var stats Stats
	batch := make([]pages.Page, 0, flushBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.repo.SaveContent(ctx, batch); err != nil {
			// Whole batch dropped; the pages stay stale and are retried
			// on the next run.
			s.recordError(logrus.Fields{"count": len(batch)}, err, "flushing content batch, batch dropped")
			stats.Failed += len(batch)
			stats.Fetched -= len(batch)
		}
		batch = batch[:0]
	}

	for _, page := range stale {
		if ctx.Err() != nil {
			flush()
			return stats, eris.Wrap(ctx.Err(), "content sync interrupted")
		}

		current, err := s.repo.GetByID(ctx, page.ID)
		if err != nil {
			s.recordError(logrus.Fields{"page_id": page.ID}, err, "re-reading page before fetch")
			stats.Failed++
			continue
		}
		if current == nil || !current.Stale() {
			s.logDebug(logrus.Fields{"page_id": page.ID, "title": page.Title}, "already have latest revision, not refreshing")
			stats.Skipped++
			continue
		}

		content, err := s.client.Parse(ctx, page.ID)
		if err != nil {
			s.recordError(logrus.Fields{"page_id": page.ID, "title": page.Title}, err, "fetching page content, page skipped")
			stats.Failed++
			continue
		}

		current.Title = content.Title
		current.RevisionID = content.RevisionID
		current.FullFetchRevisionID = content.RevisionID
		current.HTML = content.HTML
		current.Text = content.Wikitext

		batch = append(batch, *current)
		stats.Fetched++
		if len(batch) >= flushBatchSize {
			flush()
		}
	}
	flush()

	s.logInfo(logrus.Fields{
		"fetched": stats.Fetched,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	}, "content sync complete")

	return stats, nil
}

func (s *Syncer) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithField("component", "contentsync").WithFields(fields).Info(message)
}

func (s *Syncer) logDebug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithField("component", "contentsync").WithFields(fields).Debug(message)
}

func (s *Syncer) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.hub != nil {
		s.hub.CaptureException(err)
	}
}
