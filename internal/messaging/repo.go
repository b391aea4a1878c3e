package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

// MessageRepository persists messages. There is no delete: archiving a
// message only clears its active flag.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	// ListInbox returns a provider's messages newest first. When
	// activeOnly is set, archived messages are filtered out.
	ListInbox(ctx context.Context, facility identity.FacilityID, providerNo string, activeOnly bool, limit, offset int) ([]*Message, int, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}
