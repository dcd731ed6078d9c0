package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/studio-payroll/internal/types"
)

// Presenter owns the settlement report for the currently selected period.
// It cycles Idle -> Loading -> Ready|Failed and back to Loading on every
// period change. Each fetch is tagged with a generation; a response whose
// generation is no longer current is discarded, so a slow answer for an
// old period never overwrites a newer one.
type Presenter struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu         sync.Mutex
	period     Period
	generation uint64
	state      State
	rows       []types.SettlementRow
	summary    Summary
	detail     *Detail
	err        error
	cancel     context.CancelFunc
	listeners  []func(Snapshot)
}

// NewPresenter creates an idle presenter whose period defaults to now
func NewPresenter(fetcher Fetcher, now time.Time) *Presenter {
	return &Presenter{
		fetcher: fetcher,
		logger:  log.With().Str("component", "settlement_presenter").Logger(),
		period:  CurrentPeriod(now),
		state:   StateIdle,
		summary: Aggregate(nil),
	}
}

// Subscribe registers fn to receive a snapshot after every transition.
// Snapshots carry a generation; listeners may drop ones older than the
// last seen.
func (p *Presenter) Subscribe(fn func(Snapshot)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Load fetches the current period
func (p *Presenter) Load(ctx context.Context) Snapshot {
	return p.run(ctx, nil)
}

// Refresh refetches the current period
func (p *Presenter) Refresh(ctx context.Context) Snapshot {
	return p.run(ctx, nil)
}

// SelectPeriod switches to period and fetches it. Only an invalid period
// is returned as an error; fetch failures land in the snapshot.
func (p *Presenter) SelectPeriod(ctx context.Context, period Period) (Snapshot, error) {
	if err := period.Validate(); err != nil {
		return p.Snapshot(), err
	}
	return p.run(ctx, &period), nil
}

// Expand selects one instructor's row for the detail view. Only allowed
// while the report is Ready.
func (p *Presenter) Expand(instructorID int64) (Detail, error) {
	p.mu.Lock()
	if p.state != StateReady {
		p.mu.Unlock()
		return Detail{}, fmt.Errorf("%w: state is %s", ErrNotReady, p.state)
	}

	var found *types.SettlementRow
	for i := range p.rows {
		if p.rows[i].InstructorID == instructorID {
			found = &p.rows[i]
			break
		}
	}
	if found == nil {
		p.mu.Unlock()
		return Detail{}, fmt.Errorf("%w: %d", ErrUnknownInstructor, instructorID)
	}

	detail := Breakdown(*found, p.summary)
	p.detail = &detail
	snap, listeners := p.snapshotLocked(), p.listenersLocked()
	p.mu.Unlock()

	notify(listeners, snap)
	return detail, nil
}

// Collapse clears the detail view without touching the period
func (p *Presenter) Collapse() {
	p.mu.Lock()
	if p.detail == nil {
		p.mu.Unlock()
		return
	}
	p.detail = nil
	snap, listeners := p.snapshotLocked(), p.listenersLocked()
	p.mu.Unlock()

	notify(listeners, snap)
}

// Snapshot returns a copy of the current state
func (p *Presenter) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Presenter) run(ctx context.Context, next *Period) Snapshot {
	p.mu.Lock()
	if next != nil {
		p.period = *next
	}
	period := p.period
	p.generation++
	gen := p.generation
	if p.cancel != nil {
		p.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.state = StateLoading
	p.rows = nil
	p.summary = Aggregate(nil)
	p.detail = nil
	p.err = nil
	snap, listeners := p.snapshotLocked(), p.listenersLocked()
	p.mu.Unlock()

	p.logger.Info().
		Str("period", period.String()).
		Uint64("generation", gen).
		Msg("loading settlements")
	notify(listeners, snap)

	rows, err := p.fetcher.FetchSettlements(fetchCtx, period)
	cancel()

	p.mu.Lock()
	if gen != p.generation {
		current := p.snapshotLocked()
		p.mu.Unlock()
		p.logger.Debug().
			Str("period", period.String()).
			Uint64("generation", gen).
			Uint64("current_generation", current.Generation).
			Msg("discarding stale settlement response")
		return current
	}

	p.cancel = nil
	if err != nil {
		p.state = StateFailed
		p.err = err
	} else {
		p.state = StateReady
		p.rows = rows
		p.summary = Aggregate(rows)
	}
	snap, listeners = p.snapshotLocked(), p.listenersLocked()
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn().Err(err).
			Str("period", period.String()).
			Msg("settlement fetch failed, showing empty report")
	} else {
		p.logger.Info().
			Str("period", period.String()).
			Int("partners", snap.Summary.PartnerCount).
			Int("sessions", snap.Summary.TotalSessions).
			Str("total_payout", snap.Summary.TotalPayout.String()).
			Msg("settlements ready")
	}
	notify(listeners, snap)
	return snap
}

func (p *Presenter) snapshotLocked() Snapshot {
	snap := Snapshot{
		Period:     p.period,
		State:      p.state,
		Generation: p.generation,
		Summary:    p.summary,
		Err:        p.err,
	}
	if len(p.rows) > 0 {
		snap.Rows = append([]types.SettlementRow(nil), p.rows...)
	}
	if p.detail != nil {
		d := *p.detail
		snap.Detail = &d
	}
	return snap
}

func (p *Presenter) listenersLocked() []func(Snapshot) {
	listeners := make([]func(Snapshot), len(p.listeners))
	copy(listeners, p.listeners)
	return listeners
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
