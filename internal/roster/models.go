package roster

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ksred/studio-payroll/internal/types"
)

type Workspace struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Instructor struct {
	ID        int64           `gorm:"primaryKey"`
	Name      string          `gorm:"not null"`
	Phone     string
	Color     string
	BasicPay  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Rate      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Phone        string
	InstructorID *int64 `gorm:"index"`
	Instructor   *Instructor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (w Workspace) ToAPI() types.Workspace {
	return types.Workspace{ID: w.ID, Name: w.Name}
}

func (i Instructor) ToAPI() types.Instructor {
	return types.Instructor{
		ID:       i.ID,
		Name:     i.Name,
		Phone:    i.Phone,
		Color:    i.Color,
		BasicPay: i.BasicPay,
		Rate:     i.Rate,
	}
}

func (m Member) ToAPI() types.Member {
	out := types.Member{ID: m.ID, Name: m.Name, Phone: m.Phone}
	if m.InstructorID != nil {
		out.InstructorID = *m.InstructorID
	}
	if m.Instructor != nil {
		out.InstructorName = m.Instructor.Name
	}
	return out
}
