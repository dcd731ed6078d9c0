package migrations

import (
	"github.com/ksred/studio-payroll/internal/roster"
	"gorm.io/gorm"
)

// CreateWorkspaces creates the workspace table
func CreateWorkspaces(db *gorm.DB) error {
	return db.AutoMigrate(&roster.Workspace{})
}
