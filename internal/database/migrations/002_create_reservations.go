package migrations

import (
	"github.com/ksred/studio-payroll/internal/reservation"
	"gorm.io/gorm"
)

// CreateReservations creates the reservation and idempotency tables and the
// indexes the calendar and payroll queries rely on
func CreateReservations(db *gorm.DB) error {
	if err := db.AutoMigrate(&reservation.Reservation{}, &reservation.IdempotencyRecord{}); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_reservations_start_time
		 ON reservations(start_time)`,

		`CREATE INDEX IF NOT EXISTS idx_idempotency_records_expires_at
		 ON idempotency_records(expires_at)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
