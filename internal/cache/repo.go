package cache

import (
	"context"

	"github.com/open-osp/integrator/internal/identity"
)

// Repositories are append/update only: cached records are never removed,
// only superseded by a more recent import.

type AllergyRepository interface {
	Upsert(ctx context.Context, a *Allergy) error
	Get(ctx context.Context, key identity.RecordKey) (*Allergy, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Allergy, int, error)
	ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Allergy, int, error)
}

type IssueRepository interface {
	Upsert(ctx context.Context, i *Issue) error
	Get(ctx context.Context, key identity.IssueKey) (*Issue, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Issue, int, error)
	ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Issue, int, error)
}

type NoteRepository interface {
	Upsert(ctx context.Context, n *Note) error
	Get(ctx context.Context, key identity.StringKey) (*Note, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Note, int, error)
	ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Note, int, error)
}

type PreventionRepository interface {
	Upsert(ctx context.Context, p *Prevention) error
	Get(ctx context.Context, key identity.RecordKey) (*Prevention, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Prevention, int, error)
	ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Prevention, int, error)
}

type FormRepository interface {
	Upsert(ctx context.Context, f *Form) error
	Get(ctx context.Context, key identity.RecordKey) (*Form, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Form, int, error)
	ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Form, int, error)
}

type ProviderRepository interface {
	Upsert(ctx context.Context, p *Provider) error
	Get(ctx context.Context, key identity.StringKey) (*Provider, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Provider, int, error)
}

type MeasurementTypeRepository interface {
	Upsert(ctx context.Context, m *MeasurementType) error
	Get(ctx context.Context, key identity.RecordKey) (*MeasurementType, error)
	ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*MeasurementType, int, error)
}
