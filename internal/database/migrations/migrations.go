package migrations

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Migration struct {
	Version int
	Name    string
	Up      func(*gorm.DB) error
}

// SchemaMigration records an applied migration
type SchemaMigration struct {
	Version   int `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	AppliedAt time.Time
}

// All lists migrations in the order they must run
var All = []Migration{
	{1, "create_accounts_and_roster", CreateAccountsAndRoster},
	{2, "create_reservations", CreateReservations},
	{3, "create_instructor_settlements", CreateInstructorSettlements},
	{4, "create_workspaces", CreateWorkspaces},
}

// Run applies every migration not yet recorded in schema_migrations
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	for _, m := range All {
		if done[m.Version] {
			continue
		}
		if err := m.Up(db); err != nil {
			return fmt.Errorf("migration %03d_%s: %w", m.Version, m.Name, err)
		}
		if err := db.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return err
		}
		log.Info().Str("component", "database").Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
	}
	return nil
}
