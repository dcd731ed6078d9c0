package payroll

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

// Service computes instructor payroll per calendar month
type Service struct {
	db       *Database
	location *time.Location
}

// NewService creates a payroll service. Month boundaries are taken in loc,
// or UTC when loc is nil.
func NewService(gormDB *gorm.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:       NewDatabase(gormDB),
		location: loc,
	}
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", response.ErrValidation)
	}
	if year < 1000 || year > 9999 {
		return fmt.Errorf("%w: year must have four digits", response.ErrValidation)
	}
	return nil
}

// MonthWindow returns [first of month, first of next month)
func (s *Service) MonthWindow(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	return from, from.AddDate(0, 1, 0)
}

// MonthlySettlements returns one row per instructor ordered by id. A closed
// month is served from its snapshot; any other month is computed live.
func (s *Service) MonthlySettlements(year, month int) ([]types.SettlementRow, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	snapshot, err := s.db.GetSnapshot(year, month)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		rows := make([]types.SettlementRow, 0, len(snapshot))
		for _, r := range snapshot {
			rows = append(rows, types.SettlementRow{
				InstructorID:   r.InstructorID,
				Name:           r.Name,
				BasicPay:       r.BasicPay,
				PerSessionRate: r.Rate,
				SessionCount:   r.SessionCount,
				TotalSalary:    r.TotalSalary,
			})
		}
		return rows, nil
	}

	return s.computeLive(year, month)
}

func (s *Service) computeLive(year, month int) ([]types.SettlementRow, error) {
	instructors, err := s.db.ListInstructors()
	if err != nil {
		return nil, err
	}
	from, to := s.MonthWindow(year, month)
	counts, err := s.db.CountSessions(from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	rows := make([]types.SettlementRow, 0, len(instructors))
	for _, i := range instructors {
		sessions := counts[i.ID]
		rows = append(rows, types.SettlementRow{
			InstructorID:   i.ID,
			Name:           i.Name,
			BasicPay:       i.BasicPay,
			PerSessionRate: i.Rate,
			SessionCount:   sessions,
			TotalSalary:    i.BasicPay.Add(i.Rate.Mul(decimal.NewFromInt(int64(sessions)))),
		})
	}
	return rows, nil
}

// CloseMonth freezes the month's live figures. Closing an already closed
// month is a no-op and returns false.
func (s *Service) CloseMonth(year, month int) (bool, error) {
	if err := validatePeriod(year, month); err != nil {
		return false, err
	}
	closed, err := s.db.HasSnapshot(year, month)
	if err != nil || closed {
		return false, err
	}

	rows, err := s.computeLive(year, month)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	snapshot := make([]InstructorSettlement, 0, len(rows))
	for _, r := range rows {
		snapshot = append(snapshot, InstructorSettlement{
			InstructorID: r.InstructorID,
			Year:         year,
			Month:        month,
			Name:         r.Name,
			BasicPay:     r.BasicPay,
			Rate:         r.PerSessionRate,
			SessionCount: r.SessionCount,
			TotalSalary:  r.TotalSalary,
			ClosedAt:     now,
		})
	}
	if err := s.db.SaveSnapshot(snapshot); err != nil {
		return false, err
	}

	log.Info().
		Str("component", "payroll").
		Int("year", year).
		Int("month", month).
		Int("instructors", len(snapshot)).
		Msg("month closed")
	return len(snapshot) > 0, nil
}

// GinHandlers contains HTTP handlers for payroll endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// MonthlySettlementsHandler handles GET /settlements/:year/:month
func (h *GinHandlers) MonthlySettlementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := strconv.Atoi(c.Param("year"))
		if err != nil {
			response.BadRequest(c, "Invalid year")
			return
		}
		month, err := strconv.Atoi(c.Param("month"))
		if err != nil {
			response.BadRequest(c, "Invalid month")
			return
		}

		rows, err := h.service.MonthlySettlements(year, month)
		response.Handle(c, rows, err)
	}
}
