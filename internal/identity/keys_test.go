package identity

import (
	"sort"
	"testing"
	"time"
)

func TestNewRecordKey_RejectsInvalidFacility(t *testing.T) {
	if _, err := NewRecordKey(0, 42); err == nil {
		t.Error("expected error for facility id 0")
	}
	if _, err := NewRecordKey(-3, 42); err == nil {
		t.Error("expected error for negative facility id")
	}
	if _, err := NewRecordKey(7, 42); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecordKey_Equal(t *testing.T) {
	a, _ := NewRecordKey(7, 42)
	b, _ := NewRecordKey(7, 42)
	c, _ := NewRecordKey(8, 42)
	if !a.Equal(b) {
		t.Error("keys with same facility and local id should be equal")
	}
	if a.Equal(c) {
		t.Error("keys from different facilities should not be equal")
	}
}

func TestRecordKey_CompareIgnoresFacility(t *testing.T) {
	a, _ := NewRecordKey(9, 10)
	b, _ := NewRecordKey(2, 20)
	if a.Compare(b) >= 0 {
		t.Error("local id 10 should sort before 20 regardless of facility id")
	}
	// Same local id, different facility: equal for ordering purposes.
	c, _ := NewRecordKey(1, 10)
	if a.Compare(c) != 0 {
		t.Error("ordering must not consider the facility id")
	}
}

func TestRecordKey_SortOrder(t *testing.T) {
	keys := []RecordKey{
		{Facility: 1, LocalID: 30},
		{Facility: 3, LocalID: 10},
		{Facility: 2, LocalID: 20},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	want := []int{10, 20, 30}
	for i, k := range keys {
		if k.LocalID != want[i] {
			t.Fatalf("position %d: got local id %d, want %d", i, k.LocalID, want[i])
		}
	}
}

func TestStringKey_Compare(t *testing.T) {
	a, _ := NewStringKey(5, "alpha")
	b, _ := NewStringKey(5, "beta")
	if a.Compare(b) >= 0 {
		t.Error("alpha should sort before beta")
	}
	if b.Compare(a) <= 0 {
		t.Error("beta should sort after alpha")
	}
	if a.Compare(a) != 0 {
		t.Error("key should compare equal to itself")
	}
}

func TestIssueKey_EqualAndCompare(t *testing.T) {
	observed := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	a, _ := NewIssueKey(7, "p100", observed, "hypertension")
	b, _ := NewIssueKey(7, "p100", observed, "hypertension")
	if !a.Equal(b) {
		t.Error("identical issue keys should be equal")
	}

	later, _ := NewIssueKey(7, "p100", observed.AddDate(0, 0, 1), "hypertension")
	if a.Compare(later) >= 0 {
		t.Error("earlier observation should sort first")
	}

	otherProvider, _ := NewIssueKey(7, "p200", observed, "hypertension")
	if a.Compare(otherProvider) >= 0 {
		t.Error("provider number is the primary sort component")
	}

	otherDesc, _ := NewIssueKey(7, "p100", observed, "zoster")
	if a.Compare(otherDesc) >= 0 {
		t.Error("description breaks ties on provider and date")
	}
}

func TestIssueKey_ObservedNormalizedToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	observed := time.Date(2024, 3, 15, 22, 0, 0, 0, est)
	a, _ := NewIssueKey(7, "p100", observed, "asthma")
	b, _ := NewIssueKey(7, "p100", observed.UTC(), "asthma")
	if !a.Equal(b) {
		t.Error("observation time should compare in UTC")
	}
	if a.String() != b.String() {
		t.Errorf("string forms differ: %q vs %q", a.String(), b.String())
	}
}

func TestKeyStringForms(t *testing.T) {
	rk, _ := NewRecordKey(7, 42)
	if rk.String() != "7/42" {
		t.Errorf("RecordKey.String() = %q, want 7/42", rk.String())
	}
	sk, _ := NewStringKey(7, "n-9")
	if sk.String() != "7/n-9" {
		t.Errorf("StringKey.String() = %q, want 7/n-9", sk.String())
	}
}
