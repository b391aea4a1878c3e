package facility

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-osp/integrator/internal/identity"
)

type Service struct {
	repo FacilityRepository
}

func NewService(repo FacilityRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, f *Facility) error {
	if !f.FacilityID.Valid() {
		return fmt.Errorf("facility_id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if existing, err := s.repo.GetByFacilityID(ctx, f.FacilityID); err == nil && existing != nil {
		return fmt.Errorf("facility %d is already registered", f.FacilityID)
	}
	f.Disabled = false
	return s.repo.Create(ctx, f)
}

func (s *Service) Get(ctx context.Context, facilityID identity.FacilityID) (*Facility, error) {
	return s.repo.GetByFacilityID(ctx, facilityID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Disable(ctx context.Context, facilityID identity.FacilityID) error {
	return s.repo.SetDisabled(ctx, facilityID, true)
}

func (s *Service) Enable(ctx context.Context, facilityID identity.FacilityID) error {
	return s.repo.SetDisabled(ctx, facilityID, false)
}

// IsDisabled reports whether new batch admission for the facility is
// suspended. Unknown facilities count as disabled.
func (s *Service) IsDisabled(ctx context.Context, facilityID identity.FacilityID) (bool, error) {
	f, err := s.repo.GetByFacilityID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return true, err
	}
	return f.Disabled, nil
}
