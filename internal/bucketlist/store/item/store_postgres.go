package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bucketlist/internal/bucketlist/models"
	"bucketlist/internal/platform/database"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
	"bucketlist/pkg/platform/tx"
)

const itemColumns = `id, name, done, bucketlist_id, date_created, date_modified`

// PostgresStore persists items in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, it *models.Item) error {
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO bucketlist_items (name, done, bucketlist_id, date_created, date_modified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		it.Name, it.Done, int64(it.BucketlistID), it.DateCreated, it.DateModified,
	).Scan(&it.ID)
	if err != nil {
		return mapWriteErr(err, "create item")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) (*models.Item, error) {
	var it models.Item
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM bucketlist_items WHERE id = $1 AND bucketlist_id = $2`,
		int64(itemID), int64(bucketlistID),
	).Scan(&it.ID, &it.Name, &it.Done, &it.BucketlistID, &it.DateCreated, &it.DateModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &it, nil
}

func (s *PostgresStore) Update(ctx context.Context, it *models.Item) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE bucketlist_items SET name = $3, done = $4, date_modified = $5
		WHERE id = $1 AND bucketlist_id = $2`,
		int64(it.ID), int64(it.BucketlistID), it.Name, it.Done, it.DateModified,
	)
	if err != nil {
		return mapWriteErr(err, "update item")
	}
	return requireAffected(res, "update item")
}

func (s *PostgresStore) Delete(ctx context.Context, itemID id.ItemID, bucketlistID id.BucketlistID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM bucketlist_items WHERE id = $1 AND bucketlist_id = $2`,
		int64(itemID), int64(bucketlistID),
	)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireAffected(res, "delete item")
}

func (s *PostgresStore) ListByBucketlist(ctx context.Context, bucketlistID id.BucketlistID) ([]models.Item, error) {
	grouped, err := s.ListByBucketlists(ctx, []id.BucketlistID{bucketlistID})
	if err != nil {
		return nil, err
	}
	if items, ok := grouped[bucketlistID]; ok {
		return items, nil
	}
	return []models.Item{}, nil
}

// ListByBucketlists loads the items of every listed bucketlist in one query.
func (s *PostgresStore) ListByBucketlists(ctx context.Context, bucketlistIDs []id.BucketlistID) (map[id.BucketlistID][]models.Item, error) {
	out := make(map[id.BucketlistID][]models.Item, len(bucketlistIDs))
	if len(bucketlistIDs) == 0 {
		return out, nil
	}
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+itemColumns+` FROM bucketlist_items WHERE bucketlist_id = ANY($1) ORDER BY id`,
		pq.Array(int64s(bucketlistIDs)),
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Done, &it.BucketlistID, &it.DateCreated, &it.DateModified); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out[it.BucketlistID] = append(out[it.BucketlistID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteByBucketlists(ctx context.Context, bucketlistIDs []id.BucketlistID) (int64, error) {
	if len(bucketlistIDs) == 0 {
		return 0, nil
	}
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM bucketlist_items WHERE bucketlist_id = ANY($1)`,
		pq.Array(int64s(bucketlistIDs)),
	)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return n, nil
}

func int64s(ids []id.BucketlistID) []int64 {
	out := make([]int64, len(ids))
	for i, v := range ids {
		out[i] = int64(v)
	}
	return out
}

func mapWriteErr(err error, op string) error {
	if constraint, ok := database.UniqueConstraint(err); ok {
		if constraint == "bucketlist_items_bucketlist_id_name_key" {
			return ErrNameTaken
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
	}
	if database.ForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrUnknownBucketlist)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
