package migrations

import (
	"github.com/ksred/studio-payroll/internal/auth"
	"github.com/ksred/studio-payroll/internal/roster"
	"gorm.io/gorm"
)

// CreateAccountsAndRoster creates users, instructors and members
func CreateAccountsAndRoster(db *gorm.DB) error {
	return db.AutoMigrate(&auth.User{}, &roster.Instructor{}, &roster.Member{})
}
