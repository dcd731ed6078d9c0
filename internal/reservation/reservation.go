package reservation

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/studio-payroll/internal/roster"
	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

const IdempotencyTTL = 24 * time.Hour

var ErrInvalidSlot = fmt.Errorf("%w: end time must be after start time", response.ErrValidation)

// Service handles bookings
type Service struct {
	db  *Database
	now func() time.Time
}

// NewService creates a new reservation service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:  NewDatabase(gormDB),
		now: time.Now,
	}
}

// CreateReservation books a member with an instructor. If idempotencyKey
// matches an unexpired record the earlier reservation is returned instead.
func (s *Service) CreateReservation(req types.ReservationRequest, idempotencyKey string) (*types.Reservation, error) {
	logger := log.With().
		Str("component", "reservation").
		Str("idempotency_key", idempotencyKey).
		Logger()

	if idempotencyKey != "" {
		record, err := s.db.GetIdempotencyRecord(idempotencyKey)
		if err != nil {
			return nil, err
		}
		if record != nil && record.ExpiresAt.After(s.now()) {
			logger.Debug().Int64("reservation_id", record.ResourceID).Msg("replaying idempotent reservation")
			return s.GetReservation(record.ResourceID)
		}
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidSlot
	}
	if err := s.requireExists(&roster.Member{}, req.MemberID, "member"); err != nil {
		return nil, err
	}
	if err := s.requireExists(&roster.Instructor{}, req.InstructorID, "instructor"); err != nil {
		return nil, err
	}

	r := &Reservation{
		MemberID:     req.MemberID,
		InstructorID: req.InstructorID,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
	}
	if err := s.db.CreateReservationWithIdempotency(r, idempotencyKey, IdempotencyTTL); err != nil {
		return nil, err
	}

	logger.Info().
		Int64("reservation_id", r.ID).
		Int64("instructor_id", r.InstructorID).
		Time("start_time", r.StartTime).
		Msg("reservation created")

	return s.GetReservation(r.ID)
}

func (s *Service) requireExists(model interface{}, id int64, kind string) error {
	var count int64
	if err := s.db.db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d does not exist", response.ErrValidation, kind, id)
	}
	return nil
}

// GetReservation retrieves one reservation with member and instructor names
func (s *Service) GetReservation(id int64) (*types.Reservation, error) {
	r, err := s.db.GetReservation(id)
	if err != nil {
		return nil, err
	}
	out := r.ToAPI()
	return &out, nil
}

// ListReservations returns reservations ordered by start time
func (s *Service) ListReservations(from, to time.Time) ([]types.Reservation, error) {
	reservations, err := s.db.ListReservations(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]types.Reservation, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, r.ToAPI())
	}
	return out, nil
}

// Reschedule moves a reservation to a new slot
func (s *Service) Reschedule(id int64, req types.RescheduleRequest) (*types.Reservation, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidSlot
	}
	if err := s.db.UpdateTimes(id, req.StartTime.UTC(), req.EndTime.UTC()); err != nil {
		return nil, err
	}
	return s.GetReservation(id)
}

// CancelReservation deletes a reservation
func (s *Service) CancelReservation(id int64) error {
	return s.db.DeleteReservation(id)
}

// PurgeExpiredIdempotency removes idempotency records past their expiry
func (s *Service) PurgeExpiredIdempotency() (int64, error) {
	return s.db.PurgeExpiredIdempotency(s.now())
}

// GinHandlers contains HTTP handlers for reservation endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid reservation id")
		return 0, false
	}
	return id, true
}

func parseBound(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// ListReservationsHandler handles GET with optional RFC 3339 from/to bounds
func (h *GinHandlers) ListReservationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err := parseBound(c.Query("from"))
		if err != nil {
			response.BadRequest(c, "Invalid from parameter")
			return
		}
		to, err := parseBound(c.Query("to"))
		if err != nil {
			response.BadRequest(c, "Invalid to parameter")
			return
		}

		reservations, err := h.service.ListReservations(from, to)
		response.Handle(c, reservations, err)
	}
}

// CreateReservationHandler handles POST; the Idempotency-Key header is optional
func (h *GinHandlers) CreateReservationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		r, err := h.service.CreateReservation(req, c.GetHeader("Idempotency-Key"))
		response.Handle(c, r, err)
	}
}

func (h *GinHandlers) RescheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reservationID(c)
		if !ok {
			return
		}

		var req types.RescheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		r, err := h.service.Reschedule(id, req)
		response.Handle(c, r, err)
	}
}

func (h *GinHandlers) CancelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := reservationID(c)
		if !ok {
			return
		}

		err := h.service.CancelReservation(id)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			response.Handle(c, nil, err)
			return
		}
		if err != nil {
			response.NotFound(c, "Reservation not found")
			return
		}
		response.Success(c, gin.H{"id": id})
	}
}
