// Package cache holds the facility-sourced clinical records mirrored at
// the coordinating node. Records are addressed by their composite
// identity and carry a per-type recency marker; the import pipeline is
// the only writer, so no record-level conflict handling lives here.
package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/open-osp/integrator/internal/identity"
)

// RecordType names one of the cached record families.
type RecordType string

const (
	TypeAllergy         RecordType = "allergy"
	TypeIssue           RecordType = "issue"
	TypeNote            RecordType = "note"
	TypePrevention      RecordType = "prevention"
	TypeForm            RecordType = "form"
	TypeProvider        RecordType = "provider"
	TypeMeasurementType RecordType = "measurement-type"
)

// Record is implemented by every cached record type. The merge engine
// relies on it to treat all seven families uniformly.
type Record interface {
	RecordType() RecordType
	// KeyString is the canonical composite-identity string, used for
	// per-key write serialization.
	KeyString() string
	// Recency is the type-specific marker deciding whether an incoming
	// record supersedes the cached one.
	Recency() time.Time
}

// Allergy is a patient allergy as reported by its owning facility.
type Allergy struct {
	Key            identity.RecordKey `json:"key"`
	PatientLocalID int                `json:"patient_local_id"`
	Description    string             `json:"description"`
	Severity       string             `json:"severity"`
	Reaction       string             `json:"reaction"`
	EditDate       time.Time          `json:"edit_date"`
}

func (a *Allergy) RecordType() RecordType { return TypeAllergy }
func (a *Allergy) KeyString() string      { return fmt.Sprintf("%s/%s", TypeAllergy, a.Key) }
func (a *Allergy) Recency() time.Time     { return a.EditDate }

// Issue is a clinical issue; its local key is the compound of provider,
// observation date and description.
type Issue struct {
	Key            identity.IssueKey `json:"key"`
	PatientLocalID int               `json:"patient_local_id"`
	Status         string            `json:"status"`
	Acute          bool              `json:"acute"`
	UpdateDate     time.Time         `json:"update_date"`
}

func (i *Issue) RecordType() RecordType { return TypeIssue }
func (i *Issue) KeyString() string      { return fmt.Sprintf("%s/%s", TypeIssue, i.Key) }
func (i *Issue) Recency() time.Time     { return i.UpdateDate }

// Note is a demographic note; source systems key notes with string codes.
type Note struct {
	Key             identity.StringKey `json:"key"`
	PatientLocalID  int                `json:"patient_local_id"`
	Text            string             `json:"text"`
	ObservationDate time.Time          `json:"observation_date"`
}

func (n *Note) RecordType() RecordType { return TypeNote }
func (n *Note) KeyString() string      { return fmt.Sprintf("%s/%s", TypeNote, n.Key) }
func (n *Note) Recency() time.Time     { return n.ObservationDate }

// Prevention is a prevention/immunization event.
type Prevention struct {
	Key            identity.RecordKey `json:"key"`
	PatientLocalID int                `json:"patient_local_id"`
	PreventionType string             `json:"prevention_type"`
	Refused        bool               `json:"refused"`
	PreventionDate time.Time          `json:"prevention_date"`
	EditDate       time.Time          `json:"edit_date"`
}

func (p *Prevention) RecordType() RecordType { return TypePrevention }
func (p *Prevention) KeyString() string      { return fmt.Sprintf("%s/%s", TypePrevention, p.Key) }
func (p *Prevention) Recency() time.Time     { return p.EditDate }

// Form is a completed clinical form; Data carries the form body opaque
// to the cache.
type Form struct {
	Key            identity.RecordKey `json:"key"`
	PatientLocalID int                `json:"patient_local_id"`
	FormName       string             `json:"form_name"`
	Data           string             `json:"data"`
	EditDate       time.Time          `json:"edit_date"`
}

func (f *Form) RecordType() RecordType { return TypeForm }
func (f *Form) KeyString() string      { return fmt.Sprintf("%s/%s", TypeForm, f.Key) }
func (f *Form) Recency() time.Time     { return f.EditDate }

// Provider is a provider profile published by a facility.
type Provider struct {
	Key         identity.StringKey `json:"key"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	Specialty   string             `json:"specialty"`
	LastUpdated time.Time          `json:"last_updated"`
}

func (p *Provider) RecordType() RecordType { return TypeProvider }
func (p *Provider) KeyString() string      { return fmt.Sprintf("%s/%s", TypeProvider, p.Key) }
func (p *Provider) Recency() time.Time     { return p.LastUpdated }

// MeasurementType is a measurement-type definition (vitals, labs).
type MeasurementType struct {
	Key                  identity.RecordKey `json:"key"`
	TypeCode             string             `json:"type_code"`
	TypeDescription      string             `json:"type_description"`
	MeasuringInstruction string             `json:"measuring_instruction"`
	LastUpdated          time.Time          `json:"last_updated"`
}

func (m *MeasurementType) RecordType() RecordType { return TypeMeasurementType }
func (m *MeasurementType) KeyString() string {
	return fmt.Sprintf("%s/%s", TypeMeasurementType, m.Key)
}
func (m *MeasurementType) Recency() time.Time { return m.LastUpdated }

// SortProviders orders a provider collection by its natural local-key
// order (provider number, facility-independent).
func SortProviders(items []*Provider) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key.Compare(items[j].Key) < 0
	})
}

// SortMeasurementTypes orders measurement-type definitions by local id.
func SortMeasurementTypes(items []*MeasurementType) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key.Compare(items[j].Key) < 0
	})
}
