package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementRow is one instructor's computed payroll for a period.
// TotalSalary is computed by the backend and must be displayed as-is.
type SettlementRow struct {
	InstructorID   int64           `json:"instructor_id"`
	Name           string          `json:"name"`
	BasicPay       decimal.Decimal `json:"basic_pay"`
	PerSessionRate decimal.Decimal `json:"per_session_rate"`
	SessionCount   int             `json:"session_count"`
	TotalSalary    decimal.Decimal `json:"total_salary"`
}

// Instructor represents a teaching partner as exposed by the API
type Instructor struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Phone    string          `json:"phone"`
	Color    string          `json:"color"`
	BasicPay decimal.Decimal `json:"basic_pay"`
	Rate     decimal.Decimal `json:"rate"`
}

// Member represents a studio client, optionally assigned to an instructor
// Workspace is a studio the signed-in operator can manage
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Member struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	InstructorID   int64  `json:"instructor_id,omitempty"`
	InstructorName string `json:"instructor_name,omitempty"`
}

// Reservation is one member booked into one class slot
type Reservation struct {
	ID             int64     `json:"id"`
	MemberID       int64     `json:"member_id"`
	MemberName     string    `json:"member_name"`
	InstructorID   int64     `json:"instructor_id"`
	InstructorName string    `json:"instructor_name"`
	Color          string    `json:"color"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// ReservationRequest is the body for creating a reservation
type ReservationRequest struct {
	MemberID     int64     `json:"member_id" binding:"required"`
	InstructorID int64     `json:"instructor_id" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
}

// RescheduleRequest is the body for moving a reservation
type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// Credentials is the body for login and signup
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// TokenResponse carries the bearer token issued on login
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	Expiration  time.Time `json:"expiration"`
}
