// Package pgstore is the PostgreSQL jio.Store. Each operation is a single
// conditional statement; the participant's item list lives in a JSONB
// document so appends and removals touch one row.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/supperbot/internal/jio"
)

const (
	queryFindOpen = `
SELECT chat_id, "timestamp", starter_id, status, "type", closes, split, gst, delivery, orders
FROM jios
WHERE chat_id = $1 AND "timestamp" >= $2 AND status = 'Open'
ORDER BY "timestamp" DESC
LIMIT 1`

	queryLockChat = `SELECT pg_advisory_xact_lock($1)`

	queryCreate = `
INSERT INTO jios (chat_id, "timestamp", starter_id, status, "type", closes, split, gst, delivery, orders)
SELECT $1::bigint, $2::bigint, $3::bigint, $4::text, $5::text, $6::int, $7::text, $8::text, $9::bigint, $10::jsonb
WHERE NOT EXISTS (
    SELECT 1 FROM jios WHERE chat_id = $1::bigint AND "timestamp" >= $11::bigint AND status = 'Open'
)
ON CONFLICT (chat_id, "timestamp") DO NOTHING`

	queryAppend = `
UPDATE jios SET orders = jsonb_set(
    orders,
    ARRAY[$3::text],
    jsonb_build_object(
        'firstname', COALESCE(orders -> $3::text ->> 'firstname', $4::text),
        'items', COALESCE(orders -> $3::text -> 'items', '[]'::jsonb)
            || jsonb_build_array(jsonb_build_object('item', $5::text, 'price', $6::bigint))
    )
)
WHERE chat_id = $1 AND "timestamp" = $2 AND status = 'Open'`

	queryRemove = `
UPDATE jios SET orders = orders #- ARRAY[$3::text, 'items', $4::text]
WHERE chat_id = $1 AND "timestamp" = $2 AND status = 'Open'
  AND jsonb_array_length(COALESCE(orders -> $3::text -> 'items', '[]'::jsonb)) > $5::int`

	querySetStatus = `
UPDATE jios SET status = $4
WHERE chat_id = $1 AND "timestamp" = $2 AND status = $3`
)

// Store implements jio.Store over sqlx.
type Store struct {
	db *sqlx.DB
}

var _ jio.Store = (*Store)(nil)

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// FindOpen returns the newest Open record in the window or nil.
func (s *Store) FindOpen(ctx context.Context, chatID, since int64) (*jio.Jio, error) {
	var j jio.Jio
	err := s.db.GetContext(ctx, &j, queryFindOpen, chatID, since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select open jio: %w", err)
	}
	return &j, nil
}

// CreateIfAbsent serialises creators per chat with a transaction-scoped
// advisory lock, then inserts only if no Open record is in the window.
func (s *Store) CreateIfAbsent(ctx context.Context, j *jio.Jio, since int64) (created bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, queryLockChat, j.ChatID); err != nil {
		return false, fmt.Errorf("lock chat: %w", err)
	}
	orders, err := j.Orders.Value()
	if err != nil {
		return false, fmt.Errorf("encode orders: %w", err)
	}
	res, err := tx.ExecContext(ctx, queryCreate,
		j.ChatID, j.Timestamp, j.StarterID, string(j.Status), j.Establishment,
		j.Closes, string(j.Split), string(j.GST), j.Delivery, orders, since,
	)
	if err != nil {
		return false, fmt.Errorf("insert jio: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return applied(res)
}

// AppendToList appends one item inside the participant's JSONB entry.
func (s *Store) AppendToList(ctx context.Context, key jio.Key, participant, firstName string, item jio.Item) (bool, error) {
	res, err := s.db.ExecContext(ctx, queryAppend,
		key.ChatID, key.Timestamp, participant, firstName, item.Name, item.Price,
	)
	if err != nil {
		return false, fmt.Errorf("append item: %w", err)
	}
	return applied(res)
}

// RemoveAtIndex deletes one array element from an Open record when the
// stored list is long enough to contain index.
func (s *Store) RemoveAtIndex(ctx context.Context, key jio.Key, participant string, index int) (bool, error) {
	if index < 0 {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, queryRemove,
		key.ChatID, key.Timestamp, participant, strconv.Itoa(index), index,
	)
	if err != nil {
		return false, fmt.Errorf("remove item: %w", err)
	}
	return applied(res)
}

// SetStatus is a compare-and-swap on the status column.
func (s *Store) SetStatus(ctx context.Context, key jio.Key, from, to jio.Status) (bool, error) {
	res, err := s.db.ExecContext(ctx, querySetStatus, key.ChatID, key.Timestamp, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("set status: %w", err)
	}
	return applied(res)
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
