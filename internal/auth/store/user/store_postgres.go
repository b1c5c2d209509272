package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bucketlist/internal/auth/models"
	"bucketlist/internal/platform/database"
	id "bucketlist/pkg/domain"
	"bucketlist/pkg/platform/sentinel"
	"bucketlist/pkg/platform/tx"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return mapUniqueErr(err, "create user")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(userID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $1`,
		int64(user.ID), user.Username, user.Email, user.PasswordHash, user.UpdatedAt,
	)
	if err != nil {
		return mapUniqueErr(err, "update user")
	}
	return requireAffected(res, "update user")
}

// Delete removes the user; bucketlists and items follow through ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, int64(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "delete user")
}

func (s *PostgresStore) Exists(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, int64(userID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func mapUniqueErr(err error, op string) error {
	if constraint, ok := database.UniqueConstraint(err); ok {
		switch constraint {
		case "users_username_key":
			return ErrUsernameTaken
		case "users_email_key":
			return ErrEmailTaken
		}
		return fmt.Errorf("%s: %w", op, sentinel.ErrAlreadyUsed)
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
