package importer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/open-osp/integrator/internal/cache"
	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/ledger"
)

// --- in-memory fixtures ---

type memLedgerRepo struct {
	entries []*ledger.Entry
}

func (m *memLedgerRepo) Create(_ context.Context, e *ledger.Entry) error {
	for _, ex := range m.entries {
		if ex.FacilityID == e.FacilityID && ex.Checksum == e.Checksum && ex.Status != ledger.StatusFailed {
			return ledger.ErrDuplicateChecksum
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLedgerRepo) GetByID(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memLedgerRepo) GetByFilename(_ context.Context, facility identity.FacilityID, filename string) (*ledger.Entry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].FacilityID == facility && m.entries[i].Filename == filename {
			return m.entries[i], nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memLedgerRepo) GetActiveByChecksum(_ context.Context, facility identity.FacilityID, checksum string) (*ledger.Entry, error) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.FacilityID == facility && e.Checksum == checksum && e.Status != ledger.StatusFailed {
			return e, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (m *memLedgerRepo) List(_ context.Context, filter ledger.ListFilter, limit, offset int) ([]*ledger.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *memLedgerRepo) ListPending(_ context.Context, limit int) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	for _, e := range m.entries {
		if e.Status == ledger.StatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedgerRepo) UpdateStatus(_ context.Context, id uuid.UUID, status ledger.Status, detail string) error {
	for _, e := range m.entries {
		if e.ID == id {
			e.Status = status
			e.StatusDetail = detail
			return nil
		}
	}
	return ledger.ErrNotFound
}

type memContentStore struct {
	data map[uuid.UUID][]byte
	puts int
}

func newMemContentStore() *memContentStore {
	return &memContentStore{data: make(map[uuid.UUID][]byte)}
}

func (m *memContentStore) Put(_ context.Context, entryID uuid.UUID, data []byte) error {
	m.puts++
	m.data[entryID] = data
	return nil
}

func (m *memContentStore) Get(_ context.Context, entryID uuid.UUID) ([]byte, error) {
	d, ok := m.data[entryID]
	if !ok {
		return nil, ErrContentNotFound
	}
	return d, nil
}

type memAllergyRepo struct {
	byKey     map[identity.RecordKey]*cache.Allergy
	failLocal int
}

func newMemAllergyRepo() *memAllergyRepo {
	return &memAllergyRepo{byKey: make(map[identity.RecordKey]*cache.Allergy), failLocal: -1}
}

func (m *memAllergyRepo) Upsert(_ context.Context, a *cache.Allergy) error {
	if a.Key.LocalID == m.failLocal {
		return errors.New("storage refused the write")
	}
	cp := *a
	m.byKey[a.Key] = &cp
	return nil
}

func (m *memAllergyRepo) Get(_ context.Context, key identity.RecordKey) (*cache.Allergy, error) {
	a, ok := m.byKey[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return a, nil
}

func (m *memAllergyRepo) ListByFacility(_ context.Context, facility identity.FacilityID, limit, offset int) ([]*cache.Allergy, int, error) {
	return nil, 0, nil
}

func (m *memAllergyRepo) ListByPatient(_ context.Context, facility identity.FacilityID, patientLocalID, limit, offset int) ([]*cache.Allergy, int, error) {
	return nil, 0, nil
}

type memProviderRepo struct {
	byKey map[identity.StringKey]*cache.Provider
}

func newMemProviderRepo() *memProviderRepo {
	return &memProviderRepo{byKey: make(map[identity.StringKey]*cache.Provider)}
}

func (m *memProviderRepo) Upsert(_ context.Context, p *cache.Provider) error {
	cp := *p
	m.byKey[p.Key] = &cp
	return nil
}

func (m *memProviderRepo) Get(_ context.Context, key identity.StringKey) (*cache.Provider, error) {
	p, ok := m.byKey[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return p, nil
}

func (m *memProviderRepo) ListByFacility(_ context.Context, facility identity.FacilityID, limit, offset int) ([]*cache.Provider, int, error) {
	return nil, 0, nil
}

type fixture struct {
	svc       *Service
	ledgerSvc *ledger.Service
	ledger    *memLedgerRepo
	content   *memContentStore
	allergies *memAllergyRepo
	providers *memProviderRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledgerRepo := &memLedgerRepo{}
	ledgerSvc := ledger.NewService(ledgerRepo)
	allergies := newMemAllergyRepo()
	providers := newMemProviderRepo()
	store := cache.NewStore(allergies, nil, nil, nil, nil, providers, nil)
	content := newMemContentStore()
	svc := NewService(ledgerSvc, store, content, NewJSONParser(), zerolog.Nop())
	return &fixture{
		svc:       svc,
		ledgerSvc: ledgerSvc,
		ledger:    ledgerRepo,
		content:   content,
		allergies: allergies,
		providers: providers,
	}
}

func batchJSON(t *testing.T, records ...map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return data
}

func allergyRecord(localID, patient int, description string, edit time.Time) map[string]any {
	return map[string]any{
		"type": "allergy",
		"payload": map[string]any{
			"local_id":         localID,
			"patient_local_id": patient,
			"description":      description,
			"edit_date":        edit.Format(time.RFC3339),
		},
	}
}

func providerRecord(no, last string, updated time.Time) map[string]any {
	return map[string]any{
		"type": "provider",
		"payload": map[string]any{
			"provider_no":  no,
			"last_name":    last,
			"last_updated": updated.Format(time.RFC3339),
		},
	}
}

// --- tests ---

func TestSubmit_StagesContentAndAdmits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := batchJSON(t, allergyRecord(1, 10, "penicillin", time.Now()))
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 1, Filename: "a.zip", Content: content})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.AlreadyImported {
		t.Error("fresh batch reported as already imported")
	}
	if res.Entry.Status != ledger.StatusPending {
		t.Errorf("expected pending, got %s", res.Entry.Status)
	}
	if _, err := f.content.Get(ctx, res.Entry.ID); err != nil {
		t.Errorf("content not staged: %v", err)
	}
}

func TestSubmit_DuplicateContentNotRestaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := batchJSON(t, allergyRecord(1, 10, "penicillin", time.Now()))
	first, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 1, Filename: "a.zip", Content: content})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 1, Filename: "a-again.zip", Content: content})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if !second.AlreadyImported {
		t.Error("expected already-imported report")
	}
	if second.Entry.ID != first.Entry.ID {
		t.Error("expected the original ledger entry back")
	}
	if f.content.puts != 1 {
		t.Errorf("duplicate content staged again: %d puts", f.content.puts)
	}
}

func TestSubmit_EmptyContentRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{FacilityID: 1, Filename: "a.zip"})
	if err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestProcess_AppliesRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	content := batchJSON(t,
		allergyRecord(1, 10, "penicillin", now),
		providerRecord("101", "Ng", now),
	)
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "a.zip", Content: content})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatalf("Process: %v", err)
	}

	entry, err := f.ledgerSvc.Get(ctx, res.Entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", entry.Status, entry.StatusDetail)
	}
	key, _ := identity.NewRecordKey(3, 1)
	if _, ok := f.allergies.byKey[key]; !ok {
		t.Error("allergy not cached")
	}
	pkey, _ := identity.NewStringKey(3, "101")
	if _, ok := f.providers.byKey[pkey]; !ok {
		t.Error("provider not cached")
	}
}

func TestProcess_OlderIncomingSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newer := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	key, _ := identity.NewRecordKey(3, 1)
	f.allergies.byKey[key] = &cache.Allergy{Key: key, Description: "penicillin (updated)", EditDate: newer}

	content := batchJSON(t, allergyRecord(1, 10, "penicillin (stale)", older))
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "stale.zip", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatal(err)
	}

	if got := f.allergies.byKey[key].Description; got != "penicillin (updated)" {
		t.Errorf("stale record overwrote the cache: %s", got)
	}
	entry, _ := f.ledgerSvc.Get(ctx, res.Entry.ID)
	if entry.Status != ledger.StatusCompleted {
		t.Errorf("skips must not fail the batch: %s", entry.Status)
	}
}

func TestProcess_EqualRecencyIncomingWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	when := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	key, _ := identity.NewRecordKey(3, 1)
	f.allergies.byKey[key] = &cache.Allergy{Key: key, Description: "old wording", EditDate: when}

	content := batchJSON(t, allergyRecord(1, 10, "new wording", when))
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "tie.zip", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatal(err)
	}

	if got := f.allergies.byKey[key].Description; got != "new wording" {
		t.Errorf("equal recency must favor the incoming record, got %q", got)
	}
}

func TestProcess_RecordErrorDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.allergies.failLocal = 2
	ctx := context.Background()

	now := time.Now().UTC()
	content := batchJSON(t,
		allergyRecord(1, 10, "applies", now),
		allergyRecord(2, 10, "refused by storage", now),
		allergyRecord(3, 10, "also applies", now),
	)
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "partial.zip", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatal(err)
	}

	entry, _ := f.ledgerSvc.Get(ctx, res.Entry.ID)
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("a batch with record errors must end failed: %s", entry.Status)
	}
	if entry.StatusDetail != "applied=2 skipped=0 errors=1" {
		t.Errorf("unexpected detail: %s", entry.StatusDetail)
	}
	k1, _ := identity.NewRecordKey(3, 1)
	k3, _ := identity.NewRecordKey(3, 3)
	if _, ok := f.allergies.byKey[k1]; !ok {
		t.Error("record before the error must stay applied")
	}
	if _, ok := f.allergies.byKey[k3]; !ok {
		t.Error("record after the error must still apply")
	}
}

func TestProcess_PartialFailureFreesChecksumForResubmission(t *testing.T) {
	f := newFixture(t)
	f.allergies.failLocal = 2
	ctx := context.Background()

	now := time.Now().UTC()
	content := batchJSON(t,
		allergyRecord(1, 10, "applies", now),
		allergyRecord(2, 10, "refused by storage", now),
	)
	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "partial.zip", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatal(err)
	}

	// The failed entry no longer holds the checksum, so the same bytes
	// admit again as a fresh entry and the errored record gets another
	// merge pass.
	f.allergies.failLocal = 0
	retry, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "partial.zip", Content: content})
	if err != nil {
		t.Fatal(err)
	}
	if retry.AlreadyImported {
		t.Fatal("resubmission after partial failure must not count as already imported")
	}
	if retry.Entry.ID == res.Entry.ID {
		t.Fatal("resubmission must create a new ledger entry")
	}
	if err := f.svc.Process(ctx, retry.Entry); err != nil {
		t.Fatal(err)
	}

	entry, _ := f.ledgerSvc.Get(ctx, retry.Entry.ID)
	if entry.Status != ledger.StatusCompleted {
		t.Fatalf("retry should complete, got %s (%s)", entry.Status, entry.StatusDetail)
	}
	k2, _ := identity.NewRecordKey(3, 2)
	if _, ok := f.allergies.byKey[k2]; !ok {
		t.Error("errored record must apply on the retry")
	}
}

func TestProcess_ParseFailureFailsBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, SubmitRequest{FacilityID: 3, Filename: "garbled.zip", Content: []byte("not json")})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Process(ctx, res.Entry); err != nil {
		t.Fatalf("Process: %v", err)
	}

	entry, _ := f.ledgerSvc.Get(ctx, res.Entry.ID)
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", entry.Status)
	}
}

func TestParse_UnknownRecordType(t *testing.T) {
	p := NewJSONParser()
	data := []byte(`{"records":[{"type":"medication","payload":{}}]}`)
	if _, err := p.Parse(3, data); err == nil {
		t.Fatal("expected error for unknown record type")
	}
}

func TestKeyLock_SerializesSameKey(t *testing.T) {
	locks := newKeyLock(8)
	locks.Lock("allergy/1/1")
	done := make(chan struct{})
	go func() {
		locks.Lock("allergy/1/1")
		locks.Unlock("allergy/1/1")
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second holder acquired the lock while held")
	case <-time.After(20 * time.Millisecond):
	}
	locks.Unlock("allergy/1/1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock never released")
	}
}
