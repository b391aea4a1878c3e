package messaging

import (
	"context"
	"errors"
	"fmt"
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

type messageRepoPG struct {
	pool *pgxpool.Pool
}

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const messageCols = `id, source_facility, source_provider_no, dest_facility, dest_provider_no, type, subject, body, sent_at, active`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var src, dst int
	err := row.Scan(&m.ID, &src, &m.SourceProviderNo, &dst, &m.DestProviderNo,
		&m.Type, &m.Subject, &m.Body, &m.SentAt, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.SourceFacility = identity.FacilityID(src)
	m.DestFacility = identity.FacilityID(dst)
	return &m, nil
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	m.Active = true
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO message (`+messageCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, int(m.SourceFacility), m.SourceProviderNo, int(m.DestFacility), m.DestProviderNo,
		m.Type, m.Subject, m.Body, m.SentAt, m.Active)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+messageCols+` FROM message WHERE id = $1`, id)
	return scanMessage(row)
}

func (r *messageRepoPG) ListInbox(ctx context.Context, facility identity.FacilityID, providerNo string, activeOnly bool, limit, offset int) ([]*Message, int, error) {
	cond := `dest_facility = $1 AND dest_provider_no = $2`
	args := []any{int(facility), providerNo}
	if activeOnly {
		cond += ` AND active`
	}

	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM message WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inbox: %w", err)
	}
	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT `+messageCols+` FROM message WHERE %s ORDER BY sent_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()
	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *messageRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("update message active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
