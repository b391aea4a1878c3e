// Package identity defines the facility-qualified keys that identify
// cached records across the federation. Every record cached at the
// coordinating node is addressed by the facility it originated from plus
// a facility-local identifier; two records with equal keys refer to the
// same real-world entity as seen from that facility.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFacilityID is returned when a facility id is zero or
// negative.
var ErrInvalidFacilityID = errors.New("invalid facility id")

// FacilityID identifies a facility participating in the federation.
// Zero is never a valid facility id.
type FacilityID int

func (f FacilityID) Valid() bool { return f > 0 }

// RecordKey qualifies an integer facility-local id. Used for allergies,
// preventions, forms and measurement types.
type RecordKey struct {
	Facility FacilityID
	LocalID  int
}

func NewRecordKey(facility FacilityID, localID int) (RecordKey, error) {
	if !facility.Valid() {
		return RecordKey{}, fmt.Errorf("record key %d: %w", facility, ErrInvalidFacilityID)
	}
	return RecordKey{Facility: facility, LocalID: localID}, nil
}

func (k RecordKey) Equal(other RecordKey) bool {
	return k.Facility == other.Facility && k.LocalID == other.LocalID
}

// Compare orders keys by local id only; the facility id is not part of
// the sort key. Collections of providers and measurement types rely on
// this for their natural ordering.
func (k RecordKey) Compare(other RecordKey) int {
	switch {
	case k.LocalID < other.LocalID:
		return -1
	case k.LocalID > other.LocalID:
		return 1
	default:
		return 0
	}
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%d/%d", k.Facility, k.LocalID)
}

// StringKey qualifies a string facility-local id. Provider profiles and
// demographic notes use source-system string codes as their local ids.
type StringKey struct {
	Facility FacilityID
	LocalID  string
}

func NewStringKey(facility FacilityID, localID string) (StringKey, error) {
	if !facility.Valid() {
		return StringKey{}, fmt.Errorf("string key %d: %w", facility, ErrInvalidFacilityID)
	}
	return StringKey{Facility: facility, LocalID: localID}, nil
}

func (k StringKey) Equal(other StringKey) bool {
	return k.Facility == other.Facility && k.LocalID == other.LocalID
}

// Compare orders keys by local id only, lexicographically.
func (k StringKey) Compare(other StringKey) int {
	return strings.Compare(k.LocalID, other.LocalID)
}

func (k StringKey) String() string {
	return fmt.Sprintf("%d/%s", k.Facility, k.LocalID)
}

// IssueKey is the compound local key for clinical issues: the provider
// who recorded the issue, the observation date, and the issue
// description together identify the issue within a facility.
type IssueKey struct {
	Facility    FacilityID
	ProviderNo  string
	Observed    time.Time
	Description string
}

func NewIssueKey(facility FacilityID, providerNo string, observed time.Time, description string) (IssueKey, error) {
	if !facility.Valid() {
		return IssueKey{}, fmt.Errorf("issue key %d: %w", facility, ErrInvalidFacilityID)
	}
	return IssueKey{
		Facility:    facility,
		ProviderNo:  providerNo,
		Observed:    observed.UTC(),
		Description: description,
	}, nil
}

func (k IssueKey) Equal(other IssueKey) bool {
	return k.Facility == other.Facility &&
		k.ProviderNo == other.ProviderNo &&
		k.Observed.Equal(other.Observed) &&
		k.Description == other.Description
}

// Compare orders by provider, then observation date, then description.
// As with the other key types the facility id does not participate.
func (k IssueKey) Compare(other IssueKey) int {
	if c := strings.Compare(k.ProviderNo, other.ProviderNo); c != 0 {
		return c
	}
	switch {
	case k.Observed.Before(other.Observed):
		return -1
	case k.Observed.After(other.Observed):
		return 1
	}
	return strings.Compare(k.Description, other.Description)
}

func (k IssueKey) String() string {
	return fmt.Sprintf("%d/%s/%s/%s", k.Facility, k.ProviderNo,
		k.Observed.UTC().Format(time.RFC3339), k.Description)
}
