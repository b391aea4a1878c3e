package facility

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/platform/db"
)

// ErrNotFound is returned when no facility profile exists for the
// requested federation id.
var ErrNotFound = errors.New("facility not found")

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type facilityRepoPG struct{ pool *pgxpool.Pool }

func NewFacilityRepoPG(pool *pgxpool.Pool) FacilityRepository {
	return &facilityRepoPG{pool: pool}
}

func (r *facilityRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const facilityCols = `id, facility_id, name, url, disabled, created_at, updated_at`

func (r *facilityRepoPG) scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(&f.ID, &f.FacilityID, &f.Name, &f.URL, &f.Disabled, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *facilityRepoPG) Create(ctx context.Context, f *Facility) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO facility (id, facility_id, name, url, disabled)
		VALUES ($1,$2,$3,$4,$5)`,
		f.ID, f.FacilityID, f.Name, f.URL, f.Disabled)
	return err
}

func (r *facilityRepoPG) GetByFacilityID(ctx context.Context, facilityID identity.FacilityID) (*Facility, error) {
	return r.scanFacility(r.conn(ctx).QueryRow(ctx,
		`SELECT `+facilityCols+` FROM facility WHERE facility_id = $1`, facilityID))
}

func (r *facilityRepoPG) List(ctx context.Context, limit, offset int) ([]*Facility, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facility`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+facilityCols+` FROM facility ORDER BY facility_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Facility
	for rows.Next() {
		f, err := r.scanFacility(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, nil
}

func (r *facilityRepoPG) SetDisabled(ctx context.Context, facilityID identity.FacilityID, disabled bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE facility SET disabled = $2, updated_at = NOW() WHERE facility_id = $1`,
		facilityID, disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
