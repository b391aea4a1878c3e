package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

// ListFilter narrows ledger queries. Zero values mean "any".
type ListFilter struct {
	Facility identity.FacilityID
	Status   Status
}

// EntryRepository persists the import ledger. There is deliberately no
// delete operation: the ledger is append-only.
type EntryRepository interface {
	// Create inserts a new entry. Returns ErrDuplicateChecksum when a
	// non-failed entry with the same facility and checksum exists; the
	// check and the insert are atomic.
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// GetByFilename returns the most recent entry for the filename
	// within the facility.
	GetByFilename(ctx context.Context, facility identity.FacilityID, filename string) (*Entry, error)
	// GetActiveByChecksum returns the non-failed entry carrying the
	// checksum for the facility.
	GetActiveByChecksum(ctx context.Context, facility identity.FacilityID, checksum string) (*Entry, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error)
	// ListPending returns pending entries oldest first, for the sweep.
	ListPending(ctx context.Context, limit int) ([]*Entry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, detail string) error
}
