package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-osp/integrator/internal/identity"
	"github.com/open-osp/integrator/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type entryRepoPG struct {
	pool *pgxpool.Pool
}

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, facility_id, filename, checksum, interval_start, interval_end, depends_on, status, status_detail, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var fid int
	var status string
	err := row.Scan(&e.ID, &fid, &e.Filename, &e.Checksum, &e.IntervalStart, &e.IntervalEnd,
		&e.DependsOn, &status, &e.StatusDetail, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	e.FacilityID = identity.FacilityID(fid)
	e.Status = Status(status)
	return &e, nil
}

func (r *entryRepoPG) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = StatusPending
	}
	// A partial unique index on (facility_id, checksum) where status is
	// not failed makes the dedup check and the insert one atomic step.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO import_log (`+entryCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, int(e.FacilityID), e.Filename, e.Checksum, e.IntervalStart, e.IntervalEnd,
		e.DependsOn, string(e.Status), e.StatusDetail, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			strings.Contains(pgErr.ConstraintName, "checksum") {
			return ErrDuplicateChecksum
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *entryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM import_log WHERE id = $1`, id)
	return scanEntry(row)
}

func (r *entryRepoPG) GetByFilename(ctx context.Context, facility identity.FacilityID, filename string) (*Entry, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM import_log
		WHERE facility_id = $1 AND filename = $2
		ORDER BY created_at DESC LIMIT 1`,
		int(facility), filename)
	return scanEntry(row)
}

func (r *entryRepoPG) GetActiveByChecksum(ctx context.Context, facility identity.FacilityID, checksum string) (*Entry, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+entryCols+` FROM import_log
		WHERE facility_id = $1 AND checksum = $2 AND status <> $3
		ORDER BY created_at DESC LIMIT 1`,
		int(facility), checksum, string(StatusFailed))
	return scanEntry(row)
}

func (r *entryRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.Facility != 0 {
		args = append(args, int(filter.Facility))
		where = append(where, fmt.Sprintf("facility_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM import_log WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT `+entryCols+` FROM import_log WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *entryRepoPG) ListPending(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM import_log
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		string(StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *entryRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, detail string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE import_log SET status = $1, status_detail = $2, updated_at = $3 WHERE id = $4`,
		string(status), detail, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
