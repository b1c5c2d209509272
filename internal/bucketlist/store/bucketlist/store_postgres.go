package bucketlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bucketlist/internal/bucketlist/models"
	"bucketlist/internal/platform/database"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
	"bucketlist/pkg/platform/tx"
)

const bucketlistColumns = `id, name, created_by, date_created, date_modified`

// PostgresStore persists bucketlists in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Bucketlist) error {
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO bucketlists (name, created_by, date_created, date_modified)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		b.Name, int64(b.CreatedBy), b.DateCreated, b.DateModified,
	).Scan(&b.ID)
	if err != nil {
		return mapWriteErr(err, "create bucketlist")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, bucketlistID id.BucketlistID) (*models.Bucketlist, error) {
	return s.findOne(ctx, `SELECT `+bucketlistColumns+` FROM bucketlists WHERE id = $1`, int64(bucketlistID))
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Bucketlist, error) {
	return s.findOne(ctx, `SELECT `+bucketlistColumns+` FROM bucketlists WHERE name = $1`, name)
}

func (s *PostgresStore) OwnerOf(ctx context.Context, bucketlistID id.BucketlistID) (id.UserID, error) {
	var owner id.UserID
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT created_by FROM bucketlists WHERE id = $1`, int64(bucketlistID),
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find bucketlist owner: %w", err)
	}
	return owner, nil
}

func (s *PostgresStore) Update(ctx context.Context, b *models.Bucketlist) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE bucketlists SET name = $2, created_by = $3, date_modified = $4
		WHERE id = $1`,
		int64(b.ID), b.Name, int64(b.CreatedBy), b.DateModified,
	)
	if err != nil {
		return mapWriteErr(err, "update bucketlist")
	}
	return requireAffected(res, "update bucketlist")
}

// Delete removes the bucketlist row. Callers delete items first in the same
// transaction; ON DELETE CASCADE covers anything missed.
func (s *PostgresStore) Delete(ctx context.Context, bucketlistID id.BucketlistID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM bucketlists WHERE id = $1`, int64(bucketlistID))
	if err != nil {
		return fmt.Errorf("delete bucketlist: %w", err)
	}
	return requireAffected(res, "delete bucketlist")
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID, offset, limit int) ([]models.Bucketlist, error) {
	return s.findMany(ctx, `
		SELECT `+bucketlistColumns+` FROM bucketlists
		WHERE created_by = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`,
		int64(ownerID), limit, offset,
	)
}

func (s *PostgresStore) CountByOwner(ctx context.Context, ownerID id.UserID) (int, error) {
	var n int
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bucketlists WHERE created_by = $1`, int64(ownerID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bucketlists: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) SearchByOwner(ctx context.Context, ownerID id.UserID, prefix string, offset, limit int) ([]models.Bucketlist, error) {
	return s.findMany(ctx, `
		SELECT `+bucketlistColumns+` FROM bucketlists
		WHERE created_by = $1 AND name LIKE $2 ESCAPE '\'
		ORDER BY id
		LIMIT $3 OFFSET $4`,
		int64(ownerID), likePrefix(prefix), limit, offset,
	)
}

func (s *PostgresStore) CountSearchByOwner(ctx context.Context, ownerID id.UserID, prefix string) (int, error) {
	var n int
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bucketlists WHERE created_by = $1 AND name LIKE $2 ESCAPE '\'`,
		int64(ownerID), likePrefix(prefix),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bucketlist search: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) IDsByOwner(ctx context.Context, ownerID id.UserID) ([]id.BucketlistID, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT id FROM bucketlists WHERE created_by = $1 ORDER BY id`, int64(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list bucketlist ids: %w", err)
	}
	defer rows.Close()
	var ids []id.BucketlistID
	for rows.Next() {
		var bid id.BucketlistID
		if err := rows.Scan(&bid); err != nil {
			return nil, fmt.Errorf("scan bucketlist id: %w", err)
		}
		ids = append(ids, bid)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) DeleteByOwner(ctx context.Context, ownerID id.UserID) (int64, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM bucketlists WHERE created_by = $1`, int64(ownerID))
	if err != nil {
		return 0, fmt.Errorf("delete bucketlists by owner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete bucketlists by owner: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Bucketlist, error) {
	var b models.Bucketlist
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&b.ID, &b.Name, &b.CreatedBy, &b.DateCreated, &b.DateModified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bucketlist: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]models.Bucketlist, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bucketlists: %w", err)
	}
	defer rows.Close()

	out := []models.Bucketlist{}
	for rows.Next() {
		var b models.Bucketlist
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedBy, &b.DateCreated, &b.DateModified); err != nil {
			return nil, fmt.Errorf("scan bucketlist: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bucketlists: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func mapWriteErr(err error, op string) error {
	if constraint, ok := database.UniqueConstraint(err); ok {
		if constraint == "bucketlists_name_key" {
			return ErrNameTaken
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
	}
	if database.ForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrUnknownOwner)
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
