package importer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-osp/integrator/internal/cache"
	"github.com/open-osp/integrator/internal/identity"
)

// Parser turns raw batch content into cache records. Facilities export
// in different formats; the JSON envelope below is the default, and
// other formats plug in behind this interface.
type Parser interface {
	Parse(facility identity.FacilityID, data []byte) ([]cache.Record, error)
}

// envelope is the default batch format: a flat list of typed records.
type envelope struct {
	Records []recordEnvelope `json:"records"`
}

type recordEnvelope struct {
	Type    cache.RecordType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

type allergyPayload struct {
	LocalID        int       `json:"local_id"`
	PatientLocalID int       `json:"patient_local_id"`
	Description    string    `json:"description"`
	Severity       string    `json:"severity"`
	Reaction       string    `json:"reaction"`
	EditDate       time.Time `json:"edit_date"`
}

type issuePayload struct {
	ProviderNo     string    `json:"provider_no"`
	Observed       time.Time `json:"observed"`
	Description    string    `json:"description"`
	PatientLocalID int       `json:"patient_local_id"`
	Status         string    `json:"status"`
	Acute          bool      `json:"acute"`
	UpdateDate     time.Time `json:"update_date"`
}

type notePayload struct {
	LocalID         string    `json:"local_id"`
	PatientLocalID  int       `json:"patient_local_id"`
	Text            string    `json:"text"`
	ObservationDate time.Time `json:"observation_date"`
}

type preventionPayload struct {
	LocalID        int       `json:"local_id"`
	PatientLocalID int       `json:"patient_local_id"`
	PreventionType string    `json:"prevention_type"`
	Refused        bool      `json:"refused"`
	PreventionDate time.Time `json:"prevention_date"`
	EditDate       time.Time `json:"edit_date"`
}

type formPayload struct {
	LocalID        int       `json:"local_id"`
	PatientLocalID int       `json:"patient_local_id"`
	FormName       string    `json:"form_name"`
	Data           string    `json:"data"`
	EditDate       time.Time `json:"edit_date"`
}

type providerPayload struct {
	ProviderNo  string    `json:"provider_no"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Specialty   string    `json:"specialty"`
	LastUpdated time.Time `json:"last_updated"`
}

type measurementTypePayload struct {
	LocalID              int       `json:"local_id"`
	TypeCode             string    `json:"type_code"`
	TypeDescription      string    `json:"type_description"`
	MeasuringInstruction string    `json:"measuring_instruction"`
	LastUpdated          time.Time `json:"last_updated"`
}

// JSONParser decodes the JSON envelope format.
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) Parse(facility identity.FacilityID, data []byte) ([]cache.Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode batch envelope: %w", err)
	}
	records := make([]cache.Record, 0, len(env.Records))
	for i, re := range env.Records {
		rec, err := decodeRecord(facility, re)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeRecord(facility identity.FacilityID, re recordEnvelope) (cache.Record, error) {
	switch re.Type {
	case cache.TypeAllergy:
		var p allergyPayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewRecordKey(facility, p.LocalID)
		if err != nil {
			return nil, err
		}
		return &cache.Allergy{
			Key:            key,
			PatientLocalID: p.PatientLocalID,
			Description:    p.Description,
			Severity:       p.Severity,
			Reaction:       p.Reaction,
			EditDate:       p.EditDate,
		}, nil
	case cache.TypeIssue:
		var p issuePayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewIssueKey(facility, p.ProviderNo, p.Observed, p.Description)
		if err != nil {
			return nil, err
		}
		return &cache.Issue{
			Key:            key,
			PatientLocalID: p.PatientLocalID,
			Status:         p.Status,
			Acute:          p.Acute,
			UpdateDate:     p.UpdateDate,
		}, nil
	case cache.TypeNote:
		var p notePayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewStringKey(facility, p.LocalID)
		if err != nil {
			return nil, err
		}
		return &cache.Note{
			Key:             key,
			PatientLocalID:  p.PatientLocalID,
			Text:            p.Text,
			ObservationDate: p.ObservationDate,
		}, nil
	case cache.TypePrevention:
		var p preventionPayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewRecordKey(facility, p.LocalID)
		if err != nil {
			return nil, err
		}
		return &cache.Prevention{
			Key:            key,
			PatientLocalID: p.PatientLocalID,
			PreventionType: p.PreventionType,
			Refused:        p.Refused,
			PreventionDate: p.PreventionDate,
			EditDate:       p.EditDate,
		}, nil
	case cache.TypeForm:
		var p formPayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewRecordKey(facility, p.LocalID)
		if err != nil {
			return nil, err
		}
		return &cache.Form{
			Key:            key,
			PatientLocalID: p.PatientLocalID,
			FormName:       p.FormName,
			Data:           p.Data,
			EditDate:       p.EditDate,
		}, nil
	case cache.TypeProvider:
		var p providerPayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewStringKey(facility, p.ProviderNo)
		if err != nil {
			return nil, err
		}
		return &cache.Provider{
			Key:         key,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Specialty:   p.Specialty,
			LastUpdated: p.LastUpdated,
		}, nil
	case cache.TypeMeasurementType:
		var p measurementTypePayload
		if err := json.Unmarshal(re.Payload, &p); err != nil {
			return nil, err
		}
		key, err := identity.NewRecordKey(facility, p.LocalID)
		if err != nil {
			return nil, err
		}
		return &cache.MeasurementType{
			Key:                  key,
			TypeCode:             p.TypeCode,
			TypeDescription:      p.TypeDescription,
			MeasuringInstruction: p.MeasuringInstruction,
			LastUpdated:          p.LastUpdated,
		}, nil
	default:
		return nil, fmt.Errorf("unknown record type %q", re.Type)
	}
}
