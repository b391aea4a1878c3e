package cache

import (
	"context"

	"github.com/open-osp/integrator/internal/identity"
)

// Service exposes read access over the cached record families. Writes
// go through Store and are reserved for the import pipeline.
type Service struct {
	allergies        AllergyRepository
	issues           IssueRepository
	notes            NoteRepository
	preventions      PreventionRepository
	forms            FormRepository
	providers        ProviderRepository
	measurementTypes MeasurementTypeRepository
}

func NewService(
	allergies AllergyRepository,
	issues IssueRepository,
	notes NoteRepository,
	preventions PreventionRepository,
	forms FormRepository,
	providers ProviderRepository,
	measurementTypes MeasurementTypeRepository,
) *Service {
	return &Service{
		allergies:        allergies,
		issues:           issues,
		notes:            notes,
		preventions:      preventions,
		forms:            forms,
		providers:        providers,
		measurementTypes: measurementTypes,
	}
}

func (s *Service) GetAllergy(ctx context.Context, key identity.RecordKey) (*Allergy, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.allergies.Get(ctx, key)
}

func (s *Service) ListAllergies(ctx context.Context, facility identity.FacilityID, patient *int, limit, offset int) ([]*Allergy, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if patient != nil {
		return s.allergies.ListByPatient(ctx, facility, *patient, limit, offset)
	}
	return s.allergies.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) ListIssues(ctx context.Context, facility identity.FacilityID, patient *int, limit, offset int) ([]*Issue, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if patient != nil {
		return s.issues.ListByPatient(ctx, facility, *patient, limit, offset)
	}
	return s.issues.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) GetNote(ctx context.Context, key identity.StringKey) (*Note, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.notes.Get(ctx, key)
}

func (s *Service) ListNotes(ctx context.Context, facility identity.FacilityID, patient *int, limit, offset int) ([]*Note, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if patient != nil {
		return s.notes.ListByPatient(ctx, facility, *patient, limit, offset)
	}
	return s.notes.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) GetPrevention(ctx context.Context, key identity.RecordKey) (*Prevention, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.preventions.Get(ctx, key)
}

func (s *Service) ListPreventions(ctx context.Context, facility identity.FacilityID, patient *int, limit, offset int) ([]*Prevention, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if patient != nil {
		return s.preventions.ListByPatient(ctx, facility, *patient, limit, offset)
	}
	return s.preventions.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) GetForm(ctx context.Context, key identity.RecordKey) (*Form, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.forms.Get(ctx, key)
}

func (s *Service) ListForms(ctx context.Context, facility identity.FacilityID, patient *int, limit, offset int) ([]*Form, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if patient != nil {
		return s.forms.ListByPatient(ctx, facility, *patient, limit, offset)
	}
	return s.forms.ListByFacility(ctx, facility, limit, offset)
}

func (s *Service) GetProvider(ctx context.Context, key identity.StringKey) (*Provider, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.providers.Get(ctx, key)
}

func (s *Service) ListProviders(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Provider, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	items, total, err := s.providers.ListByFacility(ctx, facility, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	SortProviders(items)
	return items, total, nil
}

func (s *Service) GetMeasurementType(ctx context.Context, key identity.RecordKey) (*MeasurementType, error) {
	if !key.Facility.Valid() {
		return nil, identity.ErrInvalidFacilityID
	}
	return s.measurementTypes.Get(ctx, key)
}

func (s *Service) ListMeasurementTypes(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*MeasurementType, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	items, total, err := s.measurementTypes.ListByFacility(ctx, facility, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	SortMeasurementTypes(items)
	return items, total, nil
}
