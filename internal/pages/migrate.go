package pages

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the page catalog schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, conn *gorm.DB, logger *logrus.Logger) error {
	if conn == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "pages.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying page catalog schema")
	}

	if err := conn.WithContext(ctx).AutoMigrate(&Page{}, &PageTag{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("page catalog migration failed")
		}
		return eris.Wrap(err, "auto migrating page catalog schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("page catalog migration complete")
	}

	return nil
}
