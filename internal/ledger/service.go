package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

type Service struct {
	repo EntryRepository
}

func NewService(repo EntryRepository) *Service {
	return &Service{repo: repo}
}

// Admit validates and records a new import attempt. When a non-failed
// entry already carries the same checksum for the facility, Admit
// returns that entry with alreadyImported set and writes nothing.
func (s *Service) Admit(ctx context.Context, e *Entry) (entry *Entry, alreadyImported bool, err error) {
	if !e.FacilityID.Valid() {
		return nil, false, identity.ErrInvalidFacilityID
	}
	if e.Filename == "" {
		return nil, false, errors.New("filename is required")
	}
	if e.Checksum == "" {
		return nil, false, errors.New("checksum is required")
	}
	if e.IntervalStart != nil && e.IntervalEnd != nil && e.IntervalEnd.Before(*e.IntervalStart) {
		return nil, false, errors.New("interval end precedes interval start")
	}
	if err := s.checkDependencyChain(ctx, e); err != nil {
		return nil, false, err
	}

	e.Status = StatusPending
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicateChecksum) {
			existing, getErr := s.repo.GetActiveByChecksum(ctx, e.FacilityID, e.Checksum)
			if getErr != nil {
				return nil, false, fmt.Errorf("lookup duplicate: %w", getErr)
			}
			return existing, true, nil
		}
		return nil, false, err
	}
	// Re-walk the chain now that the entry is visible. Two admissions
	// racing each other can each pass the pre-insert walk before either
	// row exists; the second walk sees both rows and catches the loop.
	if e.DependsOn != nil {
		if chainErr := s.checkDependencyChain(ctx, e); chainErr != nil {
			if errors.Is(chainErr, ErrCyclicDependency) {
				if markErr := s.repo.UpdateStatus(ctx, e.ID, StatusFailed, chainErr.Error()); markErr != nil {
					return nil, false, fmt.Errorf("fail cyclic entry: %w", markErr)
				}
			}
			return nil, false, chainErr
		}
	}
	return e, false, nil
}

// checkDependencyChain rejects admissions whose dependency chain loops
// back on itself. A dependency naming a batch that has not been
// admitted yet is fine; the entry just waits.
func (s *Service) checkDependencyChain(ctx context.Context, e *Entry) error {
	if e.DependsOn == nil {
		return nil
	}
	seen := map[string]bool{e.Filename: true}
	next := *e.DependsOn
	for {
		if seen[next] {
			return fmt.Errorf("%w: %q", ErrCyclicDependency, next)
		}
		seen[next] = true
		dep, err := s.repo.GetByFilename(ctx, e.FacilityID, next)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if dep.DependsOn == nil {
			return nil
		}
		next = *dep.DependsOn
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]*Entry, error) {
	return s.repo.ListPending(ctx, limit)
}

// Remove always fails. The ledger is append-only; entries are never
// removed, whatever their status.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return ErrImmutableLedger
}

func (s *Service) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, StatusRunning, "")
}

func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, detail string) error {
	return s.transition(ctx, id, StatusCompleted, detail)
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	return s.transition(ctx, id, StatusFailed, detail)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, detail string) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Terminal() {
		return fmt.Errorf("entry %s is %s and cannot move to %s", id, e.Status, to)
	}
	return s.repo.UpdateStatus(ctx, id, to, detail)
}

// ResolveDependency classifies an entry's dependency for the sweep.
func (s *Service) ResolveDependency(ctx context.Context, e *Entry) (DependencyState, error) {
	if e.DependsOn == nil {
		return DepNone, nil
	}
	dep, err := s.repo.GetByFilename(ctx, e.FacilityID, *e.DependsOn)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DepWaiting, nil
		}
		return DepWaiting, err
	}
	switch dep.Status {
	case StatusCompleted:
		return DepSatisfied, nil
	case StatusFailed:
		return DepFailed, nil
	default:
		return DepWaiting, nil
	}
}
