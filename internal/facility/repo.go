package facility

import (
	"context"

	"github.com/open-osp/integrator/internal/identity"
)

// FacilityRepository stores facility profiles. There is deliberately no
// delete operation; profiles outlive their facilities.
type FacilityRepository interface {
	Create(ctx context.Context, f *Facility) error
	GetByFacilityID(ctx context.Context, facilityID identity.FacilityID) (*Facility, error)
	List(ctx context.Context, limit, offset int) ([]*Facility, int, error)
	SetDisabled(ctx context.Context, facilityID identity.FacilityID, disabled bool) error
}
