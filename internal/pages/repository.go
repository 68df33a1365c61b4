package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for wiki pages and their tags.
type Repository interface {
	GetByID(ctx context.Context, id int) (*Page, error)
	ListAll(ctx context.Context) ([]Page, error)
	ListStale(ctx context.Context) ([]Page, error)
	ListByTag(ctx context.Context, tag string) ([]Page, error)
	UpsertSlim(ctx context.Context, slim []PageSlim) error
	SaveContent(ctx context.Context, batch []Page) error
	UpsertFromDump(ctx context.Context, batch []Page) error
	TagPages(ctx context.Context, pageIDs []int, tag string) error
	UpdateAliases(ctx context.Context, batch []Page) error
}

// GormRepository persists pages using a Gorm database connection.
type GormRepository struct {
	conn   *gorm.DB
	logger *logrus.Logger
}

var _ Repository = (*GormRepository)(nil)

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(conn *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if conn == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{conn: conn, logger: logger}, nil
}

// GetByID returns the page for the provided id or nil when not found.
func (r *GormRepository) GetByID(ctx context.Context, id int) (*Page, error) {
	var page Page
	err := r.conn.WithContext(ctx).First(&page, "id = ?", id).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"page_id": id}, err, "fetching page by id")
		return nil, eris.Wrapf(err, "fetching page by id: %d", id)
	}

	return &page, nil
}

// ListAll returns every catalogued page ordered by id.
func (r *GormRepository) ListAll(ctx context.Context) ([]Page, error) {
	var result []Page

	if err := r.conn.WithContext(ctx).Order("id ASC").Find(&result).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	return result, nil
}

// ListStale returns pages whose last full content fetch predates their known revision.
func (r *GormRepository) ListStale(ctx context.Context) ([]Page, error) {
	var result []Page

	err := r.conn.WithContext(ctx).
		Where("revision_id <> full_fetch_revision_id").
		Order("id ASC").
		Find(&result).Error
	if err != nil {
		r.logError(nil, err, "listing stale pages")
		return nil, eris.Wrap(err, "listing stale pages")
	}

	return result, nil
}

// ListByTag returns every page carrying the provided tag.
func (r *GormRepository) ListByTag(ctx context.Context, tag string) ([]Page, error) {
	if tag == "" {
		return nil, eris.New("tag is required")
	}

	var tagRows []PageTag
	if err := r.conn.WithContext(ctx).Where("tag = ?", tag).Find(&tagRows).Error; err != nil {
		r.logError(logrus.Fields{"tag": tag}, err, "listing page tags")
		return nil, eris.Wrapf(err, "listing page tags: %s", tag)
	}

	if len(tagRows) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(tagRows))
	for _, row := range tagRows {
		ids = append(ids, row.PageID)
	}

	var result []Page
	if err := r.conn.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&result).Error; err != nil {
		r.logError(logrus.Fields{"tag": tag}, err, "listing pages by tag")
		return nil, eris.Wrapf(err, "listing pages by tag: %s", tag)
	}

	return result, nil
}

// UpsertSlim inserts newly discovered pages, refreshing the title of known ones.
func (r *GormRepository) UpsertSlim(ctx context.Context, slim []PageSlim) error {
	if len(slim) == 0 {
		return nil
	}

	rows := make([]Page, 0, len(slim))
	for _, entry := range slim {
		rows = append(rows, Page{ID: entry.ID, Title: entry.Title})
	}

	err := r.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title"}),
		}).
		Create(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"count": len(rows)}, err, "upserting slim pages")
		return eris.Wrap(err, "upserting slim pages")
	}

	return nil
}

// SaveContent persists fetched page content in a single transaction.
// FullFetchRevisionID advances only through this path, after the write succeeds.
func (r *GormRepository) SaveContent(ctx context.Context, batch []Page) error {
	if len(batch) == 0 {
		return nil
	}

	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, page := range batch {
			updates := map[string]any{
				"title":                  page.Title,
				"revision_id":            page.RevisionID,
				"full_fetch_revision_id": page.FullFetchRevisionID,
				"content_model":          page.ContentModel,
				"text":                   page.Text,
				"html":                   page.HTML,
			}
			if err := tx.Model(&Page{}).Where("id = ?", page.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"count": len(batch)}, err, "saving page content batch")
		return eris.Wrap(err, "saving page content batch")
	}

	return nil
}

// UpsertFromDump bulk-upserts pages parsed from an export dump. On conflict it
// overwrites title, revision, parent, text and timestamp while leaving the
// previously fetched HTML and alias data untouched.
func (r *GormRepository) UpsertFromDump(ctx context.Context, batch []Page) error {
	if len(batch) == 0 {
		return nil
	}

	err := r.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "revision_id", "parent_id", "text", "timestamp",
			}),
		}).
		Create(&batch).Error
	if err != nil {
		r.logError(logrus.Fields{"count": len(batch)}, err, "upserting dump pages")
		return eris.Wrap(err, "upserting dump pages")
	}

	return nil
}

// TagPages attaches the tag to every listed page. Re-tagging is a no-op.
func (r *GormRepository) TagPages(ctx context.Context, pageIDs []int, tag string) error {
	if tag == "" {
		return eris.New("tag is required")
	}
	if len(pageIDs) == 0 {
		return nil
	}

	rows := make([]PageTag, 0, len(pageIDs))
	for _, id := range pageIDs {
		rows = append(rows, PageTag{PageID: id, Tag: tag})
	}

	err := r.conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		r.logError(logrus.Fields{"tag": tag, "count": len(rows)}, err, "tagging pages")
		return eris.Wrapf(err, "tagging %d pages with %s", len(rows), tag)
	}

	return nil
}

// UpdateAliases persists the alias lists of the provided pages in one transaction.
func (r *GormRepository) UpdateAliases(ctx context.Context, batch []Page) error {
	if len(batch) == 0 {
		return nil
	}

	err := r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, page := range batch {
			if err := tx.Model(&Page{}).Where("id = ?", page.ID).Update("aliases", page.Aliases).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"count": len(batch)}, err, "updating page aliases")
		return eris.Wrap(err, "updating page aliases")
	}

	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
