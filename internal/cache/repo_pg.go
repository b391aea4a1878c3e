package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/platform/db"
)

// ErrNotFound is returned when no cached record matches the key.
var ErrNotFound = errors.New("cached record not found")

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgBase struct {
	pool *pgxpool.Pool
}

func (b *pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return b.pool
}

// --- allergies ---

type allergyRepoPG struct{ pgBase }

func NewAllergyRepoPG(pool *pgxpool.Pool) AllergyRepository {
	return &allergyRepoPG{pgBase{pool: pool}}
}

func (r *allergyRepoPG) Upsert(ctx context.Context, a *Allergy) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_allergy (facility_id, local_id, patient_local_id, description, severity, reaction, edit_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (facility_id, local_id) DO UPDATE SET
			patient_local_id = EXCLUDED.patient_local_id,
			description = EXCLUDED.description,
			severity = EXCLUDED.severity,
			reaction = EXCLUDED.reaction,
			edit_date = EXCLUDED.edit_date`,
		int(a.Key.Facility), a.Key.LocalID, a.PatientLocalID, a.Description, a.Severity, a.Reaction, a.EditDate)
	if err != nil {
		return fmt.Errorf("upsert allergy: %w", err)
	}
	return nil
}

func (r *allergyRepoPG) Get(ctx context.Context, key identity.RecordKey) (*Allergy, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, local_id, patient_local_id, description, severity, reaction, edit_date
		FROM cached_allergy WHERE facility_id = $1 AND local_id = $2`,
		int(key.Facility), key.LocalID)
	return scanAllergy(row)
}

func scanAllergy(row pgx.Row) (*Allergy, error) {
	var a Allergy
	var fid int
	err := row.Scan(&fid, &a.Key.LocalID, &a.PatientLocalID, &a.Description, &a.Severity, &a.Reaction, &a.EditDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan allergy: %w", err)
	}
	a.Key.Facility = identity.FacilityID(fid)
	return &a, nil
}

func (r *allergyRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Allergy, int, error) {
	return r.list(ctx, `facility_id = $1`, []any{int(facility)}, limit, offset)
}

func (r *allergyRepoPG) ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Allergy, int, error) {
	return r.list(ctx, `facility_id = $1 AND patient_local_id = $2`, []any{int(facility), patientLocalID}, limit, offset)
}

func (r *allergyRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Allergy, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_allergy WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count allergies: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT facility_id, local_id, patient_local_id, description, severity, reaction, edit_date
		FROM cached_allergy WHERE %s ORDER BY local_id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list allergies: %w", err)
	}
	defer rows.Close()
	var out []*Allergy
	for rows.Next() {
		a, err := scanAllergy(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// --- issues ---

type issueRepoPG struct{ pgBase }

func NewIssueRepoPG(pool *pgxpool.Pool) IssueRepository {
	return &issueRepoPG{pgBase{pool: pool}}
}

func (r *issueRepoPG) Upsert(ctx context.Context, i *Issue) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_issue (facility_id, provider_no, observed, description, patient_local_id, status, acute, update_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (facility_id, provider_no, observed, description) DO UPDATE SET
			patient_local_id = EXCLUDED.patient_local_id,
			status = EXCLUDED.status,
			acute = EXCLUDED.acute,
			update_date = EXCLUDED.update_date`,
		int(i.Key.Facility), i.Key.ProviderNo, i.Key.Observed, i.Key.Description,
		i.PatientLocalID, i.Status, i.Acute, i.UpdateDate)
	if err != nil {
		return fmt.Errorf("upsert issue: %w", err)
	}
	return nil
}

func (r *issueRepoPG) Get(ctx context.Context, key identity.IssueKey) (*Issue, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, provider_no, observed, description, patient_local_id, status, acute, update_date
		FROM cached_issue WHERE facility_id = $1 AND provider_no = $2 AND observed = $3 AND description = $4`,
		int(key.Facility), key.ProviderNo, key.Observed, key.Description)
	return scanIssue(row)
}

func scanIssue(row pgx.Row) (*Issue, error) {
	var i Issue
	var fid int
	err := row.Scan(&fid, &i.Key.ProviderNo, &i.Key.Observed, &i.Key.Description,
		&i.PatientLocalID, &i.Status, &i.Acute, &i.UpdateDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan issue: %w", err)
	}
	i.Key.Facility = identity.FacilityID(fid)
	return &i, nil
}

func (r *issueRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Issue, int, error) {
	return r.list(ctx, `facility_id = $1`, []any{int(facility)}, limit, offset)
}

func (r *issueRepoPG) ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Issue, int, error) {
	return r.list(ctx, `facility_id = $1 AND patient_local_id = $2`, []any{int(facility), patientLocalID}, limit, offset)
}

func (r *issueRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Issue, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_issue WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT facility_id, provider_no, observed, description, patient_local_id, status, acute, update_date
		FROM cached_issue WHERE %s ORDER BY provider_no, observed, description LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()
	var out []*Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, i)
	}
	return out, total, rows.Err()
}

// --- notes ---

type noteRepoPG struct{ pgBase }

func NewNoteRepoPG(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pgBase{pool: pool}}
}

func (r *noteRepoPG) Upsert(ctx context.Context, n *Note) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_note (facility_id, local_id, patient_local_id, text, observation_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (facility_id, local_id) DO UPDATE SET
			patient_local_id = EXCLUDED.patient_local_id,
			text = EXCLUDED.text,
			observation_date = EXCLUDED.observation_date`,
		int(n.Key.Facility), n.Key.LocalID, n.PatientLocalID, n.Text, n.ObservationDate)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

func (r *noteRepoPG) Get(ctx context.Context, key identity.StringKey) (*Note, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, local_id, patient_local_id, text, observation_date
		FROM cached_note WHERE facility_id = $1 AND local_id = $2`,
		int(key.Facility), key.LocalID)
	return scanNote(row)
}

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	var fid int
	err := row.Scan(&fid, &n.Key.LocalID, &n.PatientLocalID, &n.Text, &n.ObservationDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	n.Key.Facility = identity.FacilityID(fid)
	return &n, nil
}

func (r *noteRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Note, int, error) {
	return r.list(ctx, `facility_id = $1`, []any{int(facility)}, limit, offset)
}

func (r *noteRepoPG) ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Note, int, error) {
	return r.list(ctx, `facility_id = $1 AND patient_local_id = $2`, []any{int(facility), patientLocalID}, limit, offset)
}

func (r *noteRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Note, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_note WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT facility_id, local_id, patient_local_id, text, observation_date
		FROM cached_note WHERE %s ORDER BY local_id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	var out []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// --- preventions ---

type preventionRepoPG struct{ pgBase }

func NewPreventionRepoPG(pool *pgxpool.Pool) PreventionRepository {
	return &preventionRepoPG{pgBase{pool: pool}}
}

func (r *preventionRepoPG) Upsert(ctx context.Context, p *Prevention) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_prevention (facility_id, local_id, patient_local_id, prevention_type, refused, prevention_date, edit_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (facility_id, local_id) DO UPDATE SET
			patient_local_id = EXCLUDED.patient_local_id,
			prevention_type = EXCLUDED.prevention_type,
			refused = EXCLUDED.refused,
			prevention_date = EXCLUDED.prevention_date,
			edit_date = EXCLUDED.edit_date`,
		int(p.Key.Facility), p.Key.LocalID, p.PatientLocalID, p.PreventionType, p.Refused, p.PreventionDate, p.EditDate)
	if err != nil {
		return fmt.Errorf("upsert prevention: %w", err)
	}
	return nil
}

func (r *preventionRepoPG) Get(ctx context.Context, key identity.RecordKey) (*Prevention, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, local_id, patient_local_id, prevention_type, refused, prevention_date, edit_date
		FROM cached_prevention WHERE facility_id = $1 AND local_id = $2`,
		int(key.Facility), key.LocalID)
	return scanPrevention(row)
}

func scanPrevention(row pgx.Row) (*Prevention, error) {
	var p Prevention
	var fid int
	err := row.Scan(&fid, &p.Key.LocalID, &p.PatientLocalID, &p.PreventionType, &p.Refused, &p.PreventionDate, &p.EditDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan prevention: %w", err)
	}
	p.Key.Facility = identity.FacilityID(fid)
	return &p, nil
}

func (r *preventionRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Prevention, int, error) {
	return r.list(ctx, `facility_id = $1`, []any{int(facility)}, limit, offset)
}

func (r *preventionRepoPG) ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Prevention, int, error) {
	return r.list(ctx, `facility_id = $1 AND patient_local_id = $2`, []any{int(facility), patientLocalID}, limit, offset)
}

func (r *preventionRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Prevention, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_prevention WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count preventions: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT facility_id, local_id, patient_local_id, prevention_type, refused, prevention_date, edit_date
		FROM cached_prevention WHERE %s ORDER BY local_id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list preventions: %w", err)
	}
	defer rows.Close()
	var out []*Prevention
	for rows.Next() {
		p, err := scanPrevention(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// --- forms ---

type formRepoPG struct{ pgBase }

func NewFormRepoPG(pool *pgxpool.Pool) FormRepository {
	return &formRepoPG{pgBase{pool: pool}}
}

func (r *formRepoPG) Upsert(ctx context.Context, f *Form) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_form (facility_id, local_id, patient_local_id, form_name, data, edit_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (facility_id, local_id) DO UPDATE SET
			patient_local_id = EXCLUDED.patient_local_id,
			form_name = EXCLUDED.form_name,
			data = EXCLUDED.data,
			edit_date = EXCLUDED.edit_date`,
		int(f.Key.Facility), f.Key.LocalID, f.PatientLocalID, f.FormName, f.Data, f.EditDate)
	if err != nil {
		return fmt.Errorf("upsert form: %w", err)
	}
	return nil
}

func (r *formRepoPG) Get(ctx context.Context, key identity.RecordKey) (*Form, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, local_id, patient_local_id, form_name, data, edit_date
		FROM cached_form WHERE facility_id = $1 AND local_id = $2`,
		int(key.Facility), key.LocalID)
	return scanForm(row)
}

func scanForm(row pgx.Row) (*Form, error) {
	var f Form
	var fid int
	err := row.Scan(&fid, &f.Key.LocalID, &f.PatientLocalID, &f.FormName, &f.Data, &f.EditDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan form: %w", err)
	}
	f.Key.Facility = identity.FacilityID(fid)
	return &f, nil
}

func (r *formRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Form, int, error) {
	return r.list(ctx, `facility_id = $1`, []any{int(facility)}, limit, offset)
}

func (r *formRepoPG) ListByPatient(ctx context.Context, facility identity.FacilityID, patientLocalID int, limit, offset int) ([]*Form, int, error) {
	return r.list(ctx, `facility_id = $1 AND patient_local_id = $2`, []any{int(facility), patientLocalID}, limit, offset)
}

func (r *formRepoPG) list(ctx context.Context, where string, args []any, limit, offset int) ([]*Form, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_form WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count forms: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT facility_id, local_id, patient_local_id, form_name, data, edit_date
		FROM cached_form WHERE %s ORDER BY local_id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()
	var out []*Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// --- providers ---

type providerRepoPG struct{ pgBase }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pgBase{pool: pool}}
}

func (r *providerRepoPG) Upsert(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_provider (facility_id, provider_no, first_name, last_name, specialty, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (facility_id, provider_no) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			specialty = EXCLUDED.specialty,
			last_updated = EXCLUDED.last_updated`,
		int(p.Key.Facility), p.Key.LocalID, p.FirstName, p.LastName, p.Specialty, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert provider: %w", err)
	}
	return nil
}

func (r *providerRepoPG) Get(ctx context.Context, key identity.StringKey) (*Provider, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, provider_no, first_name, last_name, specialty, last_updated
		FROM cached_provider WHERE facility_id = $1 AND provider_no = $2`,
		int(key.Facility), key.LocalID)
	return scanProvider(row)
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var fid int
	err := row.Scan(&fid, &p.Key.LocalID, &p.FirstName, &p.LastName, &p.Specialty, &p.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan provider: %w", err)
	}
	p.Key.Facility = identity.FacilityID(fid)
	return &p, nil
}

func (r *providerRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*Provider, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_provider WHERE facility_id = $1`, int(facility)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count providers: %w", err)
	}
	rows, err := q.Query(ctx, `
		SELECT facility_id, provider_no, first_name, last_name, specialty, last_updated
		FROM cached_provider WHERE facility_id = $1 ORDER BY provider_no LIMIT $2 OFFSET $3`,
		int(facility), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()
	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// --- measurement types ---

type measurementTypeRepoPG struct{ pgBase }

func NewMeasurementTypeRepoPG(pool *pgxpool.Pool) MeasurementTypeRepository {
	return &measurementTypeRepoPG{pgBase{pool: pool}}
}

func (r *measurementTypeRepoPG) Upsert(ctx context.Context, m *MeasurementType) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cached_measurement_type (facility_id, local_id, type_code, type_description, measuring_instruction, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (facility_id, local_id) DO UPDATE SET
			type_code = EXCLUDED.type_code,
			type_description = EXCLUDED.type_description,
			measuring_instruction = EXCLUDED.measuring_instruction,
			last_updated = EXCLUDED.last_updated`,
		int(m.Key.Facility), m.Key.LocalID, m.TypeCode, m.TypeDescription, m.MeasuringInstruction, m.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert measurement type: %w", err)
	}
	return nil
}

func (r *measurementTypeRepoPG) Get(ctx context.Context, key identity.RecordKey) (*MeasurementType, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT facility_id, local_id, type_code, type_description, measuring_instruction, last_updated
		FROM cached_measurement_type WHERE facility_id = $1 AND local_id = $2`,
		int(key.Facility), key.LocalID)
	return scanMeasurementType(row)
}

func scanMeasurementType(row pgx.Row) (*MeasurementType, error) {
	var m MeasurementType
	var fid int
	err := row.Scan(&fid, &m.Key.LocalID, &m.TypeCode, &m.TypeDescription, &m.MeasuringInstruction, &m.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan measurement type: %w", err)
	}
	m.Key.Facility = identity.FacilityID(fid)
	return &m, nil
}

func (r *measurementTypeRepoPG) ListByFacility(ctx context.Context, facility identity.FacilityID, limit, offset int) ([]*MeasurementType, int, error) {
	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM cached_measurement_type WHERE facility_id = $1`, int(facility)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count measurement types: %w", err)
	}
	rows, err := q.Query(ctx, `
		SELECT facility_id, local_id, type_code, type_description, measuring_instruction, last_updated
		FROM cached_measurement_type WHERE facility_id = $1 ORDER BY local_id LIMIT $2 OFFSET $3`,
		int(facility), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list measurement types: %w", err)
	}
	defer rows.Close()
	var out []*MeasurementType
	for rows.Next() {
		m, err := scanMeasurementType(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
