package payroll

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksred/studio-payroll/internal/reservation"
	"github.com/ksred/studio-payroll/internal/roster"
	"github.com/ksred/studio-payroll/internal/types"
	"github.com/ksred/studio-payroll/pkg/response"
)

type fixture struct {
	t            *testing.T
	payroll      *Service
	roster       *roster.Service
	reservations *reservation.Service
	members      []int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "payroll.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&roster.Instructor{}, &roster.Member{}, &reservation.Reservation{},
		&reservation.IdempotencyRecord{}, &InstructorSettlement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		t:            t,
		payroll:      NewService(db, time.UTC),
		roster:       roster.NewService(db),
		reservations: reservation.NewService(db),
	}
	for _, name := range []string{"Kim", "Choi"} {
		m, err := f.roster.CreateMember(types.Member{Name: name})
		if err != nil {
			t.Fatal(err)
		}
		f.members = append(f.members, m.ID)
	}
	return f
}

func (f *fixture) instructor(name string, basic, rate int64) int64 {
	i, err := f.roster.CreateInstructor(types.Instructor{
		Name:     name,
		BasicPay: decimal.NewFromInt(basic),
		Rate:     decimal.NewFromInt(rate),
	})
	if err != nil {
		f.t.Fatal(err)
	}
	return i.ID
}

func (f *fixture) book(instructorID, memberID int64, start time.Time) {
	_, err := f.reservations.CreateReservation(types.ReservationRequest{
		MemberID:     memberID,
		InstructorID: instructorID,
		StartTime:    start,
		EndTime:      start.Add(50 * time.Minute),
	}, "")
	if err != nil {
		f.t.Fatal(err)
	}
}

func TestMonthlySettlementsCountsDistinctSlots(t *testing.T) {
	f := newFixture(t)
	a := f.instructor("A", 2000000, 35000)
	b := f.instructor("B", 1500000, 35000)
	idle := f.instructor("Idle", 1000000, 30000)

	march := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 24; day++ {
		slot := march.AddDate(0, 0, day).Add(10 * time.Hour)
		f.book(a, f.members[0], slot)
		f.book(a, f.members[1], slot)
		f.book(b, f.members[0], slot.Add(2*time.Hour))
	}

	f.book(a, f.members[0], time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))
	f.book(a, f.members[0], time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC))

	rows, err := f.payroll.MonthlySettlements(2026, 3)
	if err != nil {
		t.Fatalf("MonthlySettlements: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a row per instructor, got %d", len(rows))
	}

	want := []struct {
		id       int64
		sessions int
		total    int64
	}{
		{a, 24, 2840000},
		{b, 24, 2340000},
		{idle, 0, 1000000},
	}
	for i, w := range want {
		r := rows[i]
		if r.InstructorID != w.id || r.SessionCount != w.sessions || !r.TotalSalary.Equal(decimal.NewFromInt(w.total)) {
			t.Errorf("row %d = %+v, want id %d sessions %d total %d", i, r, w.id, w.sessions, w.total)
		}
	}
}

func TestMonthBoundaries(t *testing.T) {
	f := newFixture(t)
	a := f.instructor("A", 0, 10000)

	f.book(a, f.members[0], time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	f.book(a, f.members[0], time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC))
	f.book(a, f.members[0], time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))

	march, err := f.payroll.MonthlySettlements(2026, 3)
	if err != nil {
		t.Fatal(err)
	}
	if march[0].SessionCount != 2 {
		t.Errorf("march sessions = %d, want 2", march[0].SessionCount)
	}

	april, err := f.payroll.MonthlySettlements(2026, 4)
	if err != nil {
		t.Fatal(err)
	}
	if april[0].SessionCount != 1 || !april[0].TotalSalary.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("april = %+v", april[0])
	}
}

func TestMonthlySettlementsValidatesPeriod(t *testing.T) {
	f := newFixture(t)
	for _, p := range [][2]int{{2026, 0}, {2026, 13}, {999, 5}} {
		if _, err := f.payroll.MonthlySettlements(p[0], p[1]); !errors.Is(err, response.ErrValidation) {
			t.Errorf("%v: err = %v", p, err)
		}
	}
}

func TestCloseMonthFreezesFigures(t *testing.T) {
	f := newFixture(t)
	a := f.instructor("A", 100000, 5000)
	f.book(a, f.members[0], time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC))

	closed, err := f.payroll.CloseMonth(2026, 2)
	if err != nil || !closed {
		t.Fatalf("CloseMonth = %v, %v", closed, err)
	}
	closed, err = f.payroll.CloseMonth(2026, 2)
	if err != nil || closed {
		t.Fatalf("second CloseMonth = %v, %v", closed, err)
	}

	f.book(a, f.members[0], time.Date(2026, time.February, 11, 9, 0, 0, 0, time.UTC))
	f.instructor("Late", 1, 1)

	rows, err := f.payroll.MonthlySettlements(2026, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].SessionCount != 1 || !rows[0].TotalSalary.Equal(decimal.NewFromInt(105000)) {
		t.Errorf("closed month changed: %+v", rows)
	}
}

type countingPurger struct{ calls int }

func (p *countingPurger) PurgeExpiredIdempotency() (int64, error) {
	p.calls++
	return 0, nil
}

func TestProcessorClosesPreviousMonth(t *testing.T) {
	f := newFixture(t)
	a := f.instructor("A", 100000, 5000)
	f.book(a, f.members[0], time.Date(2025, time.December, 31, 20, 0, 0, 0, time.UTC))

	purger := &countingPurger{}
	p := NewProcessor(f.payroll, purger, time.Hour)
	p.now = func() time.Time { return time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Start(ctx)

	closed, err := f.payroll.db.HasSnapshot(2025, 12)
	if err != nil || !closed {
		t.Fatalf("december not closed: %v, %v", closed, err)
	}
	if purger.calls != 1 {
		t.Errorf("purger calls = %d", purger.calls)
	}
}
