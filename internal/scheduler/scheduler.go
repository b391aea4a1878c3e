// Package scheduler sweeps the import ledger and runs the merge pass
// for every batch whose dependency is satisfied. Batches waiting on an
// absent or unfinished dependency stay pending; batches whose
// dependency failed fail with it.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/ledger"
)

// Ledger is the slice of the ledger service the sweep needs.
type Ledger interface {
	ListPending(ctx context.Context, limit int) ([]*ledger.Entry, error)
	ResolveDependency(ctx context.Context, e *ledger.Entry) (ledger.DependencyState, error)
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
}

// Facilities answers whether a facility may currently import.
type Facilities interface {
	IsDisabled(ctx context.Context, facilityID identity.FacilityID) (bool, error)
}

// Processor runs the merge pass for one runnable entry.
type Processor interface {
	Process(ctx context.Context, e *ledger.Entry) error
}

const sweepBatchSize = 50

type Scheduler struct {
	ledger     Ledger
	facilities Facilities
	processor  Processor
	interval   time.Duration
	logger     zerolog.Logger
}

func New(led Ledger, facilities Facilities, processor Processor, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		ledger:     led,
		facilities: facilities,
		processor:  processor,
		interval:   interval,
		logger:     logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("import sweep started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("import sweep stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep examines every pending entry once. Entries for disabled
// facilities are left pending and picked up again once the facility is
// re-enabled.
func (s *Scheduler) Sweep(ctx context.Context) error {
	pending, err := s.ledger.ListPending(ctx, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sweepOne(ctx, entry)
	}
	return nil
}

func (s *Scheduler) sweepOne(ctx context.Context, entry *ledger.Entry) {
	log := s.logger.With().
		Str("entry_id", entry.ID.String()).
		Int("facility_id", int(entry.FacilityID)).
		Str("filename", entry.Filename).
		Logger()

	disabled, err := s.facilities.IsDisabled(ctx, entry.FacilityID)
	if err != nil {
		log.Error().Err(err).Msg("facility lookup failed, leaving entry pending")
		return
	}
	if disabled {
		log.Debug().Msg("facility disabled, entry stays pending")
		return
	}

	state, err := s.ledger.ResolveDependency(ctx, entry)
	if err != nil {
		log.Error().Err(err).Msg("dependency lookup failed, leaving entry pending")
		return
	}
	switch state {
	case ledger.DepWaiting:
		log.Debug().Msg("dependency not complete, entry stays pending")
		return
	case ledger.DepFailed:
		detail := "dependency failed"
		if entry.DependsOn != nil {
			detail = "dependency failed: " + *entry.DependsOn
		}
		if err := s.ledger.MarkFailed(ctx, entry.ID, detail); err != nil {
			log.Error().Err(err).Msg("could not propagate dependency failure")
		} else {
			log.Warn().Str("detail", detail).Msg("failed with dependency")
		}
		return
	}

	if err := s.processor.Process(ctx, entry); err != nil {
		log.Error().Err(err).Msg("merge pass errored")
	}
}
