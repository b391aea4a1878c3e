package cache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store gives the import pipeline a single write surface over all seven
// record families. The pipeline works in terms of the Record interface;
// Store dispatches to the typed repository.
type Store struct {
	allergies        AllergyRepository
	issues           IssueRepository
	notes            NoteRepository
	preventions      PreventionRepository
	forms            FormRepository
	providers        ProviderRepository
	measurementTypes MeasurementTypeRepository
}

func NewStore(
	allergies AllergyRepository,
	issues IssueRepository,
	notes NoteRepository,
	preventions PreventionRepository,
	forms FormRepository,
	providers ProviderRepository,
	measurementTypes MeasurementTypeRepository,
) *Store {
	return &Store{
		allergies:        allergies,
		issues:           issues,
		notes:            notes,
		preventions:      preventions,
		forms:            forms,
		providers:        providers,
		measurementTypes: measurementTypes,
	}
}

// NewStorePG wires a Store over the Postgres repositories.
func NewStorePG(pool *pgxpool.Pool) *Store {
	return NewStore(
		NewAllergyRepoPG(pool),
		NewIssueRepoPG(pool),
		NewNoteRepoPG(pool),
		NewPreventionRepoPG(pool),
		NewFormRepoPG(pool),
		NewProviderRepoPG(pool),
		NewMeasurementTypeRepoPG(pool),
	)
}

// GetExisting fetches the cached record sharing rec's composite key.
// Returns ErrNotFound when the key has never been cached.
func (s *Store) GetExisting(ctx context.Context, rec Record) (Record, error) {
	switch r := rec.(type) {
	case *Allergy:
		return s.allergies.Get(ctx, r.Key)
	case *Issue:
		return s.issues.Get(ctx, r.Key)
	case *Note:
		return s.notes.Get(ctx, r.Key)
	case *Prevention:
		return s.preventions.Get(ctx, r.Key)
	case *Form:
		return s.forms.Get(ctx, r.Key)
	case *Provider:
		return s.providers.Get(ctx, r.Key)
	case *MeasurementType:
		return s.measurementTypes.Get(ctx, r.Key)
	default:
		return nil, fmt.Errorf("unsupported record type %T", rec)
	}
}

// Upsert writes rec into its family's table, replacing any record with
// the same composite key.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	switch r := rec.(type) {
	case *Allergy:
		return s.allergies.Upsert(ctx, r)
	case *Issue:
		return s.issues.Upsert(ctx, r)
	case *Note:
		return s.notes.Upsert(ctx, r)
	case *Prevention:
		return s.preventions.Upsert(ctx, r)
	case *Form:
		return s.forms.Upsert(ctx, r)
	case *Provider:
		return s.providers.Upsert(ctx, r)
	case *MeasurementType:
		return s.measurementTypes.Upsert(ctx, r)
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
}
