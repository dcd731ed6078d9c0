package payroll

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Purger drops stale idempotency records alongside month closing
type Purger interface {
	PurgeExpiredIdempotency() (int64, error)
}

// Processor closes the previous month on every tick
type Processor struct {
	service      *Service
	purger       Purger
	processDelay time.Duration
	now          func() time.Time
}

func NewProcessor(service *Service, purger Purger, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Processor{
		service:      service,
		purger:       purger,
		processDelay: interval,
		now:          time.Now,
	}
}

// Start runs one pass immediately and then one per interval until ctx is done
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "payroll_processor").Logger()
	logger.Info().Dur("interval", p.processDelay).Msg("starting payroll processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	p.runOnce()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down payroll processor")
			return
		case <-ticker.C:
			p.runOnce()
		}
	}
}

func (p *Processor) runOnce() {
	logger := log.With().Str("component", "payroll_processor").Logger()

	if err := p.closePreviousMonth(); err != nil {
		logger.Error().Err(err).Msg("failed to close previous month")
	}

	if p.purger != nil {
		purged, err := p.purger.PurgeExpiredIdempotency()
		if err != nil {
			logger.Error().Err(err).Msg("failed to purge idempotency records")
		} else if purged > 0 {
			logger.Debug().Int64("purged", purged).Msg("purged expired idempotency records")
		}
	}
}

func (p *Processor) closePreviousMonth() error {
	now := p.now().In(p.service.location)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, p.service.location)
	prev := firstOfMonth.AddDate(0, -1, 0)

	_, err := p.service.CloseMonth(prev.Year(), int(prev.Month()))
	return err
}
