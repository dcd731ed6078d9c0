package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ksred/studio-payroll/internal/apiclient"
	"github.com/ksred/studio-payroll/internal/types"
)

var ErrInvalidSlot = errors.New("end time must be after start time")

// Event is one class slot: every reservation sharing a start time and an
// instructor
type Event struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	InstructorID   int64               `json:"instructor_id"`
	Color          string              `json:"color"`
	Start          time.Time           `json:"start"`
	End            time.Time           `json:"end"`
	ReservationIDs []int64             `json:"reservation_ids"`
	Members        []types.Reservation `json:"members"`
}

// Board is everything the calendar view needs
type Board struct {
	Events      []Event            `json:"events"`
	Members     []types.Member     `json:"members"`
	Instructors []types.Instructor `json:"instructors"`
}

// Service drives the calendar through the API
type Service struct {
	client *apiclient.Client
}

// NewService creates a calendar service on top of the shared API client
func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// EventKey identifies the slot a reservation belongs to
func EventKey(r types.Reservation) string {
	return fmt.Sprintf("%s_%d", r.StartTime.UTC().Format(time.RFC3339), r.InstructorID)
}

// GroupReservations folds reservations into events keyed by start time and
// instructor, in the order each slot is first seen
func GroupReservations(reservations []types.Reservation) []Event {
	index := make(map[string]int)
	events := make([]Event, 0)

	for _, r := range reservations {
		key := EventKey(r)
		i, ok := index[key]
		if !ok {
			events = append(events, Event{
				ID:           key,
				Title:        r.InstructorName,
				InstructorID: r.InstructorID,
				Color:        r.Color,
				Start:        r.StartTime,
				End:          r.EndTime,
			})
			i = len(events) - 1
			index[key] = i
		}
		events[i].ReservationIDs = append(events[i].ReservationIDs, r.ID)
		events[i].Members = append(events[i].Members, r)
	}
	return events
}

// FetchBoard loads reservations, members and instructors concurrently and
// waits for all three. The first error wins.
func (s *Service) FetchBoard(ctx context.Context) (*Board, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg           sync.WaitGroup
		errOnce      sync.Once
		firstErr     error
		reservations []types.Reservation
		board        Board
	)

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	fetch := func(path string, out any) {
		defer wg.Done()
		if err := s.client.Get(ctx, path, out); err != nil {
			fail(fmt.Errorf("failed to fetch %s: %w", path, err))
		}
	}

	wg.Add(3)
	go fetch("/reservations", &reservations)
	go fetch("/members", &board.Members)
	go fetch("/instructors", &board.Instructors)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	board.Events = GroupReservations(reservations)
	log.Debug().
		Str("component", "calendar").
		Int("reservations", len(reservations)).
		Int("events", len(board.Events)).
		Msg("calendar board loaded")
	return &board, nil
}

// Book creates a single reservation
func (s *Service) Book(ctx context.Context, req types.ReservationRequest) (*types.Reservation, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidSlot
	}
	var created types.Reservation
	if err := s.client.Post(ctx, "/reservations", req, &created); err != nil {
		return nil, fmt.Errorf("failed to book reservation: %w", err)
	}
	return &created, nil
}

// Cancel deletes a single reservation
func (s *Service) Cancel(ctx context.Context, reservationID int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("/reservations/%d", reservationID), nil); err != nil {
		return fmt.Errorf("failed to cancel reservation %d: %w", reservationID, err)
	}
	return nil
}

// MoveEvent reschedules every reservation of an event concurrently. If any
// patch fails the error is returned and the caller should reload the board.
func (s *Service) MoveEvent(ctx context.Context, event Event, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidSlot
	}

	body := types.RescheduleRequest{StartTime: start, EndTime: end}
	errs := make([]error, len(event.ReservationIDs))

	var wg sync.WaitGroup
	for i, id := range event.ReservationIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			if err := s.client.Patch(ctx, fmt.Sprintf("/reservations/%d", id), body, nil); err != nil {
				errs[i] = fmt.Errorf("reservation %d: %w", id, err)
			}
		}(i, id)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to move event %s: %w", event.ID, err)
	}
	return nil
}
