package reservation

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetReservation(id int64) (*Reservation, error) {
	var r Reservation
	if err := d.db.Preload("Member").Preload("Instructor").First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReservations returns reservations ordered by start time. Zero bounds
// are ignored.
func (d *Database) ListReservations(from, to time.Time) ([]Reservation, error) {
	q := d.db.Preload("Member").Preload("Instructor")
	if !from.IsZero() {
		q = q.Where("start_time >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_time < ?", to)
	}

	var reservations []Reservation
	if err := q.Order("start_time ASC, id ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (d *Database) UpdateTimes(id int64, start, end time.Time) error {
	result := d.db.Model(&Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"start_time": start,
			"end_time":   end,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *Database) DeleteReservation(id int64) error {
	result := d.db.Delete(&Reservation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateReservationWithIdempotency creates the reservation and, when a key is
// given, its idempotency record in one transaction. An expired record under
// the same key is replaced.
func (d *Database) CreateReservationWithIdempotency(r *Reservation, idempotencyKey string, ttl time.Duration) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		if idempotencyKey == "" {
			return nil
		}

		if err := tx.Where("idempotency_key = ?", idempotencyKey).Delete(&IdempotencyRecord{}).Error; err != nil {
			return err
		}

		record := IdempotencyRecord{
			IdempotencyKey: idempotencyKey,
			ResourceID:     r.ID,
			ResourceType:   "reservation",
			ExpiresAt:      time.Now().Add(ttl),
		}
		return tx.Create(&record).Error
	})
}

// GetIdempotencyRecord retrieves an idempotency record by key, or nil when
// none exists
func (d *Database) GetIdempotencyRecord(key string) (*IdempotencyRecord, error) {
	var record IdempotencyRecord
	if err := d.db.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// PurgeExpiredIdempotency deletes records that expired before now
func (d *Database) PurgeExpiredIdempotency(now time.Time) (int64, error) {
	result := d.db.Where("expires_at < ?", now).Delete(&IdempotencyRecord{})
	return result.RowsAffected, result.Error
}
