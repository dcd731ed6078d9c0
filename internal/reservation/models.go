package reservation

import (
	"time"

	"github.com/ksred/studio-payroll/internal/roster"
	"github.com/ksred/studio-payroll/internal/types"
)

// Reservation books one member into one class slot
type Reservation struct {
	ID           int64     `gorm:"primaryKey"`
	MemberID     int64     `gorm:"not null;index"`
	InstructorID int64     `gorm:"not null;index:idx_reservations_instructor_start,priority:1"`
	StartTime    time.Time `gorm:"not null;index:idx_reservations_instructor_start,priority:2"`
	EndTime      time.Time `gorm:"not null"`
	Member       *roster.Member
	Instructor   *roster.Instructor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type IdempotencyRecord struct {
	ID             int64     `gorm:"primaryKey"`
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     int64     `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time
}

func (r Reservation) ToAPI() types.Reservation {
	out := types.Reservation{
		ID:           r.ID,
		MemberID:     r.MemberID,
		InstructorID: r.InstructorID,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
	}
	if r.Member != nil {
		out.MemberName = r.Member.Name
	}
	if r.Instructor != nil {
		out.InstructorName = r.Instructor.Name
		out.Color = r.Instructor.Color
	}
	return out
}
