package messaging

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

type Service struct {
	repo MessageRepository
}

func NewService(repo MessageRepository) *Service {
	return &Service{repo: repo}
}

// Send validates and stores a message for the destination provider.
func (s *Service) Send(ctx context.Context, m *Message) error {
	if !m.SourceFacility.Valid() || !m.DestFacility.Valid() {
		return identity.ErrInvalidFacilityID
	}
	if m.SourceProviderNo == "" {
		return errors.New("source provider is required")
	}
	if m.DestProviderNo == "" {
		return errors.New("destination provider is required")
	}
	if m.Body == "" {
		return errors.New("message body is required")
	}
	return s.repo.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	return s.repo.GetByID(ctx, id)
}

// Inbox lists a provider's received messages, active only by default.
func (s *Service) Inbox(ctx context.Context, facility identity.FacilityID, providerNo string, includeArchived bool, limit, offset int) ([]*Message, int, error) {
	if !facility.Valid() {
		return nil, 0, identity.ErrInvalidFacilityID
	}
	if providerNo == "" {
		return nil, 0, errors.New("provider is required")
	}
	return s.repo.ListInbox(ctx, facility, providerNo, !includeArchived, limit, offset)
}

// Archive clears the message's active flag. Archiving an archived
// message is a no-op; the message itself is never removed.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, false)
}

// Restore re-activates an archived message.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, true)
}
