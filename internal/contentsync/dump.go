package contentsync

import (
	"context"
	"encoding/xml"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
)

// dumpChunkSize bounds how many pages go into one bulk upsert, staying under
// SQLite statement limits.
const dumpChunkSize = 1000

type dumpPage struct {
	Title     string `xml:"title"`
	Namespace int    `xml:"ns"`
	ID        int    `xml:"id"`
	Revision  struct {
		ID        int    `xml:"id"`
		ParentID  int    `xml:"parentid"`
		Timestamp string `xml:"timestamp"`
		Model     string `xml:"model"`
		Text      string `xml:"text"`
	} `xml:"revision"`
}

// ImportDump ingests a full wiki export document in one streaming pass,
// upserting every page keyed by id. Existing rendered HTML and alias data are
// preserved; a chunk that fails to persist is dropped and logged, leaving its
// pages stale for the next incremental sync.
func (s *Syncer) ImportDump(ctx context.Context, reader io.Reader) (int, error) {
	decoder := xml.NewDecoder(reader)

	imported := 0
	chunk := make([]pages.Page, 0, dumpChunkSize)

	flush := func() {
		if len(chunk) == 0 {
			return
		}
		if err := s.repo.UpsertFromDump(ctx, chunk); err != nil {
			s.recordError(logrus.Fields{"count": len(chunk)}, err, "persisting dump chunk, chunk dropped")
		} else {
			imported += len(chunk)
		}
		chunk = chunk[:0]
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			flush()
			return imported, eris.Wrap(err, "reading export document")
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}

		var entry dumpPage
		if err := decoder.DecodeElement(&entry, &start); err != nil {
			s.recordError(nil, err, "decoding export page, page skipped")
			continue
		}
		if entry.ID == 0 {
			continue
		}

		page := pages.Page{
			ID:           entry.ID,
			Title:        entry.Title,
			Namespace:    entry.Namespace,
			RevisionID:   entry.Revision.ID,
			ParentID:     entry.Revision.ParentID,
			ContentModel: entry.Revision.Model,
			Text:         entry.Revision.Text,
		}
		if entry.Revision.Timestamp != "" {
			if parsed, err := time.Parse(time.RFC3339, entry.Revision.Timestamp); err == nil {
				page.Timestamp = parsed
			}
		}

		chunk = append(chunk, page)
		if len(chunk) >= dumpChunkSize {
			flush()
		}
	}
	flush()

	s.logInfo(logrus.Fields{"count": imported}, "export dump ingested")
	return imported, nil
}
