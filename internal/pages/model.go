package pages

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Tags attached to pages during catalog discovery. A tag marks which
// extractor family should process the page.
const (
	TagItem      = "item"
	TagGEItem    = "ge-item"
	TagMonster   = "monster"
	TagShop      = "shop"
	TagSet       = "set"
	TagItemSpawn = "item-spawn"
)

// Page is one unit of wiki content, keyed by the wiki's own page id.
// A page is stale when RevisionID differs from FullFetchRevisionID.
type Page struct {
	ID                  int    `gorm:"primaryKey;autoIncrement:false"`
	Title               string `gorm:"not null"`
	Namespace           int
	RevisionID          int
	ParentID            int
	FullFetchRevisionID int
	ContentModel        string
	Text                string `gorm:"type:text"`
	HTML                string `gorm:"type:text"`
	Timestamp           time.Time
	Aliases             StringList `gorm:"type:text"`
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "wiki_pages"
}

// Stale reports whether the page's content fetch lags its known revision.
func (p Page) Stale() bool {
	return p.RevisionID != p.FullFetchRevisionID
}

// PageTag is a many-to-many membership of a page in a semantic category.
type PageTag struct {
	PageID int    `gorm:"primaryKey;autoIncrement:false"`
	Tag    string `gorm:"primaryKey;size:64"`
}

// TableName defines the table name for the PageTag model.
func (PageTag) TableName() string {
	return "page_tags"
}

// PageSlim is the minimal page identity produced by catalog discovery.
type PageSlim struct {
	ID    int    `json:"pageid"`
	Title string `json:"title"`
}

// StringList stores a JSON-encoded list of strings in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}

	encoded, err := json.Marshal(l)
	if err != nil {
		return nil, eris.Wrap(err, "encoding string list")
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var raw []byte
	switch typed := value.(type) {
	case []byte:
		raw = typed
	case string:
		raw = []byte(typed)
	default:
		return eris.Errorf("unsupported string list column type %T", value)
	}

	if len(raw) == 0 {
		*l = nil
		return nil
	}

	if err := json.Unmarshal(raw, l); err != nil {
		return eris.Wrap(err, "decoding string list")
	}
	return nil
}
