package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ksred/studio-payroll/internal/types"
)

var (
	ErrInvalidPeriod     = errors.New("invalid settlement period")
	ErrDataUnavailable   = errors.New("settlement data unavailable")
	ErrNotReady          = errors.New("settlement report is not ready")
	ErrUnknownInstructor = errors.New("instructor not in current report")
)

// Period selects which month's settlement report is shown
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// CurrentPeriod returns the period containing now
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// Validate checks the month range and that the year has four digits.
// Anything beyond that is for the backend to decide.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, p.Month)
	}
	if p.Year < 1000 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// Path renders the period as URL segments, month unpadded
func (p Period) Path() string {
	return fmt.Sprintf("%d/%d", p.Year, p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Summary aggregates one period's settlement rows
type Summary struct {
	TotalPayout   decimal.Decimal `json:"total_payout"`
	TotalSessions int             `json:"total_sessions"`
	PartnerCount  int             `json:"partner_count"`
}

// State is the presenter's lifecycle state
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Detail is the breakdown of a single instructor's payout
type Detail struct {
	Row        types.SettlementRow `json:"row"`
	Commission decimal.Decimal     `json:"commission"`
	SharePct   decimal.Decimal     `json:"share_pct"`
}

// Snapshot is an immutable copy of the presenter's state
type Snapshot struct {
	Period     Period                `json:"period"`
	State      State                 `json:"state"`
	Generation uint64                `json:"generation"`
	Rows       []types.SettlementRow `json:"rows"`
	Summary    Summary               `json:"summary"`
	Detail     *Detail               `json:"detail,omitempty"`
	Err        error                 `json:"-"`
}

// Empty reports whether there is nothing to tabulate
func (s Snapshot) Empty() bool {
	return len(s.Rows) == 0
}
