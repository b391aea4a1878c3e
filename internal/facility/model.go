package facility

import (
	"time"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

// Facility is the profile of a federation member site. Profiles are never
// deleted: a site that leaves the federation is disabled, which stops new
// batch admission but keeps its cached rows and ledger history intact.
type Facility struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	FacilityID identity.FacilityID `db:"facility_id" json:"facility_id"`
	Name       string              `db:"name" json:"name"`
	URL        *string             `db:"url" json:"url,omitempty"`
	Disabled   bool                `db:"disabled" json:"disabled"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}
