package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/db"
)

type Store interface {
	CreateCategory(ctx context.Context, c *Category) (int64, error)
	// GetCategory and GetBook return (nil, nil) when no row matches.
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryInUse(ctx context.Context, id int64) (bool, error)
	DeleteCategory(ctx context.Context, id int64) (int64, error)

	CreateBook(ctx context.Context, b *Book) error
	GetBook(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	SearchBooks(ctx context.Context, f SearchFilter) ([]Book, error)
	// UpdateBook locks the row, applies mutate and writes the result back in
	// one transaction. A missing row yields NOT_FOUND.
	UpdateBook(ctx context.Context, isbn string, mutate func(b *Book) error) (*Book, error)
	BookHasHistory(ctx context.Context, isbn string) (bool, error)
	DeleteBook(ctx context.Context, isbn string) (int64, error)
}

type SQLStore struct{ db *sqlx.DB }

func NewStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// ===== categories =====

func (s *SQLStore) CreateCategory(ctx context.Context, c *Category) (int64, error) {
	const q = `INSERT INTO categories (name, slug, created_at) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, c.Name, c.Slug, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLStore) GetCategory(ctx context.Context, id int64) (*Category, error) {
	const q = `SELECT id, name, slug, created_at FROM categories WHERE id = ?`
	var c Category
	if err := s.db.GetContext(ctx, &c, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	const q = `SELECT id, name, slug, created_at FROM categories ORDER BY name`
	out := []Category{}
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM books WHERE category_id = ?)`
	var used bool
	err := s.db.GetContext(ctx, &used, q, id)
	return used, err
}

func (s *SQLStore) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ===== books =====

const selectBook = `
SELECT isbn_number, title, author, category_id, availability_status, created_at, updated_at
FROM books`

func (s *SQLStore) CreateBook(ctx context.Context, b *Book) error {
	const q = `
INSERT INTO books (isbn_number, title, author, category_id, availability_status, created_at, updated_at)
VALUES (:isbn_number, :title, :author, :category_id, :availability_status, :created_at, :updated_at)`
	_, err := s.db.NamedExecContext(ctx, q, b)
	return err
}

func (s *SQLStore) GetBook(ctx context.Context, isbn string) (*Book, error) {
	return getBook(ctx, s.db, selectBook+` WHERE isbn_number = ?`, isbn)
}

func getBook(ctx context.Context, q db.DBTX, query string, isbn string) (*Book, error) {
	var b Book
	if err := q.GetContext(ctx, &b, query, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (s *SQLStore) ListBooks(ctx context.Context) ([]Book, error) {
	out := []Book{}
	if err := s.db.SelectContext(ctx, &out, selectBook+` ORDER BY title, isbn_number`); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) SearchBooks(ctx context.Context, f SearchFilter) ([]Book, error) {
	q, args, err := buildSearchQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	out := []Book{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) UpdateBook(ctx context.Context, isbn string, mutate func(b *Book) error) (*Book, error) {
	var updated *Book
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		b, err := getBook(ctx, tx, selectBook+` WHERE isbn_number = ? FOR UPDATE`, isbn)
		if err != nil {
			return err
		}
		if b == nil {
			return apierr.NotFound("book not found")
		}
		if err := mutate(b); err != nil {
			return err
		}

		const q = `
UPDATE books SET title = :title, author = :author, category_id = :category_id, updated_at = :updated_at
WHERE isbn_number = :isbn_number`
		if _, err := sqlx.NamedExecContext(ctx, tx, q, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLStore) BookHasHistory(ctx context.Context, isbn string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM borrow_records WHERE book_id = ?)`
	var used bool
	err := s.db.GetContext(ctx, &used, q, isbn)
	return used, err
}

func (s *SQLStore) DeleteBook(ctx context.Context, isbn string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE isbn_number = ?`, isbn)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
