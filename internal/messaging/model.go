// Package messaging routes clinical messages between providers at
// different facilities through the coordinating node. Messages are
// never hard-deleted; archiving clears the active flag and nothing
// else.
package messaging

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

// Message is one provider-to-provider message.
type Message struct {
	ID               uuid.UUID           `json:"id"`
	SourceFacility   identity.FacilityID `json:"source_facility"`
	SourceProviderNo string              `json:"source_provider_no"`
	DestFacility     identity.FacilityID `json:"dest_facility"`
	DestProviderNo   string              `json:"dest_provider_no"`
	Type             string              `json:"type"`
	Subject          string              `json:"subject"`
	Body             string              `json:"body"`
	SentAt           time.Time           `json:"sent_at"`
	Active           bool                `json:"active"`
}

// ErrNotFound is returned when no message matches.
var ErrNotFound = errors.New("message not found")
