package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrContentNotFound is returned when no staged content exists for a
// ledger entry.
var ErrContentNotFound = errors.New("staged batch content not found")

// ContentStore stages raw batch content between admission and the merge
// pass. Content is keyed by the ledger entry it belongs to.
type ContentStore interface {
	Put(ctx context.Context, entryID uuid.UUID, data []byte) error
	Get(ctx context.Context, entryID uuid.UUID) ([]byte, error)
}

type contentStorePG struct {
	pool *pgxpool.Pool
}

func NewContentStorePG(pool *pgxpool.Pool) ContentStore {
	return &contentStorePG{pool: pool}
}

func (s *contentStorePG) Put(ctx context.Context, entryID uuid.UUID, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_content (entry_id, content, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (entry_id) DO NOTHING`,
		entryID, data)
	if err != nil {
		return fmt.Errorf("stage batch content: %w", err)
	}
	return nil
}

func (s *contentStorePG) Get(ctx context.Context, entryID uuid.UUID) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM import_content WHERE entry_id = $1`, entryID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("load staged content: %w", err)
	}
	return data, nil
}
