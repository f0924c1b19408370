package database

import (
	"gorm.io/gorm"
)

// constraintStatements are applied after AutoMigrate. They back the inventory
// invariants at the storage level so that no code path can oversell an event
// or restore more tickets than it has.
var constraintStatements = []string{
	`ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_available_within_total`,
	`ALTER TABLE events ADD CONSTRAINT chk_events_available_within_total CHECK (tickets_available <= total_tickets)`,
	`CREATE INDEX IF NOT EXISTS idx_events_status_starts_at ON events (status, starts_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_created ON bookings (user_id, created_at DESC)`,
}

// MigrateConstraints adds the database constraints that guard ticket counts
func MigrateConstraints(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range constraintStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
