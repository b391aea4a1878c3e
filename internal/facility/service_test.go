package facility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/open-osp/integrator/internal/identity"
)

type mockFacilityRepo struct {
	items map[identity.FacilityID]*Facility
}

func newMockFacilityRepo() *mockFacilityRepo {
	return &mockFacilityRepo{items: make(map[identity.FacilityID]*Facility)}
}

func (m *mockFacilityRepo) Create(_ context.Context, f *Facility) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	m.items[f.FacilityID] = f
	return nil
}

func (m *mockFacilityRepo) GetByFacilityID(_ context.Context, facilityID identity.FacilityID) (*Facility, error) {
	f, ok := m.items[facilityID]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

func (m *mockFacilityRepo) List(_ context.Context, limit, offset int) ([]*Facility, int, error) {
	var result []*Facility
	for _, f := range m.items {
		result = append(result, f)
	}
	return result, len(result), nil
}

func (m *mockFacilityRepo) SetDisabled(_ context.Context, facilityID identity.FacilityID, disabled bool) error {
	f, ok := m.items[facilityID]
	if !ok {
		return ErrNotFound
	}
	f.Disabled = disabled
	f.UpdatedAt = time.Now()
	return nil
}

func newTestService() *Service {
	return NewService(newMockFacilityRepo())
}

func TestRegister_RequiresFields(t *testing.T) {
	svc := newTestService()
	if err := svc.Register(context.Background(), &Facility{Name: "North Clinic"}); err == nil {
		t.Error("expected error without facility_id")
	}
	if err := svc.Register(context.Background(), &Facility{FacilityID: 7}); err == nil {
		t.Error("expected error without name")
	}
	if err := svc.Register(context.Background(), &Facility{FacilityID: 7, Name: "North Clinic"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegister_RejectsDuplicateFacilityID(t *testing.T) {
	svc := newTestService()
	if err := svc.Register(context.Background(), &Facility{FacilityID: 7, Name: "North Clinic"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Register(context.Background(), &Facility{FacilityID: 7, Name: "Other"}); err == nil {
		t.Error("expected error for duplicate facility id")
	}
}

func TestDisableEnable_FlipsFlagOnly(t *testing.T) {
	svc := newTestService()
	f := &Facility{FacilityID: 7, Name: "North Clinic"}
	if err := svc.Register(context.Background(), f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Disable(context.Background(), 7); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got, err := svc.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("profile must survive disabling: %v", err)
	}
	if !got.Disabled {
		t.Error("expected facility to be disabled")
	}

	if err := svc.Enable(context.Background(), 7); err != nil {
		t.Fatalf("enable: %v", err)
	}
	got, _ = svc.Get(context.Background(), 7)
	if got.Disabled {
		t.Error("expected facility to be enabled")
	}
}

func TestIsDisabled_UnknownFacilityCountsAsDisabled(t *testing.T) {
	svc := newTestService()
	disabled, err := svc.IsDisabled(context.Background(), 99)
	if err != nil {
		t.Fatalf("unknown facility is not an error: %v", err)
	}
	if !disabled {
		t.Error("unknown facility should count as disabled")
	}
}
