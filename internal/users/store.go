package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Store interface {
	Create(ctx context.Context, u *User) (int64, error)
	// GetByEmail and GetByID return (nil, nil) when no row matches.
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

type SQLStore struct{ db *sqlx.DB }

func NewStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

const userColumns = `id, name, email, password_hash, phone_number, role, created_at`

func (s *SQLStore) Create(ctx context.Context, u *User) (int64, error) {
	const q = `
INSERT INTO users (name, email, password_hash, phone_number, role, created_at)
VALUES (:name, :email, :password_hash, :phone_number, :role, :created_at)`
	res, err := s.db.NamedExecContext(ctx, q, u)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
}

func (s *SQLStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
}

func (s *SQLStore) getOne(ctx context.Context, q string, arg any) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
