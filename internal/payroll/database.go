package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ksred/studio-payroll/internal/reservation"
	"github.com/ksred/studio-payroll/internal/roster"
)

// InstructorSettlement is the frozen payroll of one instructor for a closed
// month
type InstructorSettlement struct {
	ID           int64           `gorm:"primaryKey"`
	InstructorID int64           `gorm:"not null;uniqueIndex:idx_settlement_instructor_month,priority:1"`
	Year         int             `gorm:"not null;uniqueIndex:idx_settlement_instructor_month,priority:2"`
	Month        int             `gorm:"not null;uniqueIndex:idx_settlement_instructor_month,priority:3"`
	Name         string          `gorm:"not null"`
	BasicPay     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Rate         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	SessionCount int             `gorm:"not null"`
	TotalSalary  decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ClosedAt     time.Time       `gorm:"not null"`
}

type sessionCount struct {
	InstructorID int64
	Sessions     int
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) ListInstructors() ([]roster.Instructor, error) {
	var instructors []roster.Instructor
	if err := d.db.Order("id ASC").Find(&instructors).Error; err != nil {
		return nil, err
	}
	return instructors, nil
}

// CountSessions returns the number of distinct start times per instructor
// with start in [from, to)
func (d *Database) CountSessions(from, to time.Time) (map[int64]int, error) {
	var counts []sessionCount
	err := d.db.Model(&reservation.Reservation{}).
		Select("instructor_id, COUNT(DISTINCT start_time) AS sessions").
		Where("start_time >= ? AND start_time < ?", from, to).
		Group("instructor_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int, len(counts))
	for _, c := range counts {
		out[c.InstructorID] = c.Sessions
	}
	return out, nil
}

func (d *Database) GetSnapshot(year, month int) ([]InstructorSettlement, error) {
	var rows []InstructorSettlement
	if err := d.db.Where("year = ? AND month = ?", year, month).
		Order("instructor_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *Database) HasSnapshot(year, month int) (bool, error) {
	var count int64
	if err := d.db.Model(&InstructorSettlement{}).
		Where("year = ? AND month = ?", year, month).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveSnapshot inserts rows, skipping instructors already closed for the
// month
func (d *Database) SaveSnapshot(rows []InstructorSettlement) error {
	if len(rows) == 0 {
		return nil
	}
	return d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
