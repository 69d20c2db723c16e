package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apierr"
)

var bookCols = []string{"isbn_number", "title", "author", "category_id", "availability_status", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewStore(sqlx.NewDb(raw, "mysql")), mock
}

func TestSQLStoreUpdateBookLocksRow(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE isbn_number = ? FOR UPDATE")).
		WithArgs("1234567890").
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("1234567890", "Dune", "Frank Herbert", 1, false, created, created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET title = ?, author = ?, category_id = ?, updated_at = ?")).
		WithArgs("Dune Messiah", "Frank Herbert", int64(1), updated, "1234567890").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := s.UpdateBook(context.Background(), "1234567890", func(b *Book) error {
		b.Title = "Dune Messiah"
		b.UpdatedAt = updated
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", b.Title)
	assert.False(t, b.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreUpdateBookMissingRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("0000000000").
		WillReturnRows(sqlmock.NewRows(bookCols))
	mock.ExpectRollback()

	_, err := s.UpdateBook(context.Background(), "0000000000", func(*Book) error { return nil })
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSearchBooks(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(`title`) LIKE ?")).
		WithArgs("%dune%").
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow("1234567890", "Dune", "Frank Herbert", 1, true, now, now))

	books, err := s.SearchBooks(context.Background(), SearchFilter{Title: "Dune"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.True(t, books[0].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreCategoryInUse(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM books WHERE category_id = ?)")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))

	used, err := s.CategoryInUse(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestSQLStoreGetCategoryMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM categories WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at"}))

	c, err := s.GetCategory(context.Background(), 9)
	assert.NoError(t, err)
	assert.Nil(t, c)
}
