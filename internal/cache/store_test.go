package cache

import (
	"context"
	"testing"
	"time"
)

func newTestStore(allergies AllergyRepository, providers ProviderRepository) *Store {
	return NewStore(allergies, nil, nil, nil, nil, providers, nil)
}

func TestStore_DispatchesByRecordType(t *testing.T) {
	allergies := newMockAllergyRepo()
	providers := newMockProviderRepo()
	store := newTestStore(allergies, providers)
	ctx := context.Background()

	allergy := &Allergy{
		Key:            mustRecordKey(t, 5, 42),
		PatientLocalID: 9,
		Description:    "peanuts",
		EditDate:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(ctx, allergy); err != nil {
		t.Fatalf("Upsert allergy: %v", err)
	}
	provider := &Provider{
		Key:         mustStringKey(t, 5, "120"),
		FirstName:   "Ada",
		LastName:    "Ng",
		LastUpdated: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Upsert(ctx, provider); err != nil {
		t.Fatalf("Upsert provider: %v", err)
	}

	got, err := store.GetExisting(ctx, &Allergy{Key: allergy.Key})
	if err != nil {
		t.Fatalf("GetExisting allergy: %v", err)
	}
	if got.(*Allergy).Description != "peanuts" {
		t.Errorf("unexpected allergy: %+v", got)
	}

	got, err = store.GetExisting(ctx, &Provider{Key: provider.Key})
	if err != nil {
		t.Fatalf("GetExisting provider: %v", err)
	}
	if got.(*Provider).FirstName != "Ada" {
		t.Errorf("unexpected provider: %+v", got)
	}
}

func TestStore_GetExistingUnknownKey(t *testing.T) {
	store := newTestStore(newMockAllergyRepo(), newMockProviderRepo())

	_, err := store.GetExisting(context.Background(), &Allergy{Key: mustRecordKey(t, 5, 404)})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordKeyStrings(t *testing.T) {
	a := &Allergy{Key: mustRecordKey(t, 7, 42)}
	if a.KeyString() != "allergy/7/42" {
		t.Errorf("allergy key string: %s", a.KeyString())
	}
	p := &Provider{Key: mustStringKey(t, 7, "101")}
	if p.KeyString() != "provider/7/101" {
		t.Errorf("provider key string: %s", p.KeyString())
	}
}
