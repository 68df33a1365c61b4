package extract

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Flipping-Utilities/parsed-osrs/internal/db"
	"github.com/Flipping-Utilities/parsed-osrs/internal/pages"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupPageRepo(t *testing.T) *pages.GormRepository {
	t.Helper()

	conn, err := db.Open(db.Options{Path: filepath.Join(t.TempDir(), "extract.db")})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })

	if err := pages.Migrate(context.Background(), conn, discardLogger()); err != nil {
		t.Fatalf("migrating schema: %v", err)
	}

	repo, err := pages.NewRepository(conn, discardLogger())
	if err != nil {
		t.Fatalf("creating repository: %v", err)
	}
	return repo
}

// seedTaggedPage registers a page, stores its content and applies the tag.
func seedTaggedPage(t *testing.T, repo *pages.GormRepository, page pages.Page, tag string) {
	t.Helper()
	ctx := context.Background()

	if err := repo.UpsertSlim(ctx, []pages.PageSlim{{ID: page.ID, Title: page.Title}}); err != nil {
		t.Fatalf("seeding page %d: %v", page.ID, err)
	}
	if err := repo.SaveContent(ctx, []pages.Page{page}); err != nil {
		t.Fatalf("saving content for page %d: %v", page.ID, err)
	}
	if err := repo.TagPages(ctx, []int{page.ID}, tag); err != nil {
		t.Fatalf("tagging page %d: %v", page.ID, err)
	}
	if len(page.Aliases) > 0 {
		if err := repo.UpdateAliases(ctx, []pages.Page{page}); err != nil {
			t.Fatalf("saving aliases for page %d: %v", page.ID, err)
		}
	}
}

// testItems is a small item universe shared by the resolver-backed extractor
// tests.
func testItems() []Item {
	return []Item{
		{ID: 1213, Name: "Torch", IsInMainGame: true, IsTradeable: true},
		{ID: 1925, Name: "Bucket", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
		{ID: 1931, Name: "Pot", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
		{ID: 995, Name: "Coins", IsInMainGame: true},
		{ID: 12873, Name: "Ahrim's armour set", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
		{ID: 4708, Name: "Ahrim's hood", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
		{ID: 4712, Name: "Ahrim's robetop", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
		{ID: 2347, Name: "Hammer", IsInMainGame: true, IsTradeable: true, IsOnGrandExchange: true},
	}
}

func testResolver() *Resolver {
	return NewResolver(testItems(), DefaultResolverWeights)
}
