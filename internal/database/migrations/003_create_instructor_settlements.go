package migrations

import (
	"github.com/ksred/studio-payroll/internal/payroll"
	"gorm.io/gorm"
)

// CreateInstructorSettlements creates the closed-month snapshot table
func CreateInstructorSettlements(db *gorm.DB) error {
	return db.AutoMigrate(&payroll.InstructorSettlement{})
}
