// Package importer admits batches into the ledger and runs the merge
// pass that folds their records into the cached record store.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/open-osp/integrator/internal/cache"
	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/ledger"
)

// SubmitRequest carries one batch upload.
type SubmitRequest struct {
	FacilityID    identity.FacilityID
	Filename      string
	DependsOn     *string
	IntervalStart *time.Time
	IntervalEnd   *time.Time
	Content       []byte
}

// SubmitResult reports the outcome of an admission. AlreadyImported is
// a success: the content was imported before and nothing new was
// recorded.
type SubmitResult struct {
	Entry           *ledger.Entry `json:"entry"`
	AlreadyImported bool          `json:"already_imported"`
}

// RecordError notes one record the merge pass could not apply. The pass
// keeps going; per-record failures never abort the batch.
type RecordError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// MergeOutcome summarizes one merge pass.
type MergeOutcome struct {
	Applied int           `json:"applied"`
	Skipped int           `json:"skipped"`
	Errors  []RecordError `json:"errors,omitempty"`
}

func (o MergeOutcome) detail() string {
	return fmt.Sprintf("applied=%d skipped=%d errors=%d", o.Applied, o.Skipped, len(o.Errors))
}

type Service struct {
	ledger  *ledger.Service
	store   *cache.Store
	content ContentStore
	parser  Parser
	locks   *keyLock
	logger  zerolog.Logger
}

func NewService(led *ledger.Service, store *cache.Store, content ContentStore, parser Parser, logger zerolog.Logger) *Service {
	return &Service{
		ledger:  led,
		store:   store,
		content: content,
		parser:  parser,
		locks:   newKeyLock(256),
		logger:  logger,
	}
}

// Submit checksums the content, admits it into the ledger, and stages
// the raw bytes for the sweep. Duplicate content is reported as already
// imported and not staged again.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if len(req.Content) == 0 {
		return nil, errors.New("batch content is empty")
	}
	sum := sha256.Sum256(req.Content)
	entry := &ledger.Entry{
		FacilityID:    req.FacilityID,
		Filename:      req.Filename,
		Checksum:      hex.EncodeToString(sum[:]),
		DependsOn:     req.DependsOn,
		IntervalStart: req.IntervalStart,
		IntervalEnd:   req.IntervalEnd,
	}
	admitted, already, err := s.ledger.Admit(ctx, entry)
	if err != nil {
		return nil, err
	}
	if already {
		s.logger.Info().
			Int("facility_id", int(req.FacilityID)).
			Str("filename", req.Filename).
			Str("entry_id", admitted.ID.String()).
			Msg("batch already imported")
		return &SubmitResult{Entry: admitted, AlreadyImported: true}, nil
	}
	if err := s.content.Put(ctx, admitted.ID, req.Content); err != nil {
		// The ledger entry exists but its content never staged; fail it
		// so the checksum frees up for a resubmission.
		if markErr := s.ledger.MarkFailed(ctx, admitted.ID, "content staging failed"); markErr != nil {
			s.logger.Error().Err(markErr).Str("entry_id", admitted.ID.String()).Msg("could not fail unstaged entry")
		}
		return nil, err
	}
	s.logger.Info().
		Int("facility_id", int(req.FacilityID)).
		Str("filename", req.Filename).
		Str("entry_id", admitted.ID.String()).
		Msg("batch admitted")
	return &SubmitResult{Entry: admitted}, nil
}

// Process runs the merge pass for one admitted entry: load the staged
// content, parse it, and fold each record into the cache under the
// recency rule. Parse and staging failures fail the batch. Per-record
// merge errors do not abort the pass, but a batch with any record
// errors ends up failed so the same file can be resubmitted; whatever
// already applied stays applied.
func (s *Service) Process(ctx context.Context, entry *ledger.Entry) error {
	if err := s.ledger.MarkRunning(ctx, entry.ID); err != nil {
		return err
	}
	data, err := s.content.Get(ctx, entry.ID)
	if err != nil {
		return s.fail(ctx, entry, fmt.Sprintf("load content: %v", err))
	}
	records, err := s.parser.Parse(entry.FacilityID, data)
	if err != nil {
		return s.fail(ctx, entry, fmt.Sprintf("parse: %v", err))
	}

	outcome := s.merge(ctx, records)
	if len(outcome.Errors) > 0 {
		// Applied records stay applied, but the entry must not count as
		// imported: failing it frees the checksum so the same file can
		// be resubmitted for the records that errored.
		if err := s.ledger.MarkFailed(ctx, entry.ID, outcome.detail()); err != nil {
			return err
		}
		s.logger.Warn().
			Str("entry_id", entry.ID.String()).
			Int("applied", outcome.Applied).
			Int("skipped", outcome.Skipped).
			Int("errors", len(outcome.Errors)).
			Msg("merge pass had record errors")
		return nil
	}
	if err := s.ledger.MarkCompleted(ctx, entry.ID, outcome.detail()); err != nil {
		return err
	}
	s.logger.Info().
		Str("entry_id", entry.ID.String()).
		Int("applied", outcome.Applied).
		Int("skipped", outcome.Skipped).
		Msg("merge pass finished")
	return nil
}

func (s *Service) fail(ctx context.Context, entry *ledger.Entry, reason string) error {
	s.logger.Warn().Str("entry_id", entry.ID.String()).Str("reason", reason).Msg("batch failed")
	if err := s.ledger.MarkFailed(ctx, entry.ID, reason); err != nil {
		return err
	}
	return nil
}

func (s *Service) merge(ctx context.Context, records []cache.Record) MergeOutcome {
	var out MergeOutcome
	for _, rec := range records {
		applied, err := s.mergeOne(ctx, rec)
		if err != nil {
			out.Errors = append(out.Errors, RecordError{Key: rec.KeyString(), Reason: err.Error()})
			continue
		}
		if applied {
			out.Applied++
		} else {
			out.Skipped++
		}
	}
	return out
}

// mergeOne applies the recency rule for a single record: an incoming
// record wins when its recency marker is not older than the cached
// one. Equal markers favor the incoming record.
func (s *Service) mergeOne(ctx context.Context, rec cache.Record) (bool, error) {
	key := rec.KeyString()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	existing, err := s.store.GetExisting(ctx, rec)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return true, s.store.Upsert(ctx, rec)
		}
		return false, err
	}
	if rec.Recency().Before(existing.Recency()) {
		return false, nil
	}
	return true, s.store.Upsert(ctx, rec)
}
