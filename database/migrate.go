package database

import (
	"fmt"

	"github.com/tim7en/pm-app-sub001/models"
)

// Migrate migrates the schema of every managed model, adding the lifecycle
// columns to existing tables
func (c *DBConnection) Migrate() error {
	c.log.Info().Str("driver", c.Driver).Msg("migrating database schema")
	if err := c.DB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	c.log.Info().Str("driver", c.Driver).Msg("database schema migrated")
	return nil
}
