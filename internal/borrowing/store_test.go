package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

var recordCols = []string{"id", "record_ulid", "user_id", "book_id", "borrow_date", "return_date", "status"}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID string

func (f fixedID) New() (string, error) { return string(f), nil }

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(NewStore(sqlx.NewDb(raw, "mysql")))
	svc.clock = fixedClock{now}
	svc.ids = fixedID("01JNKQ3D6Z8X0000000000000A")
	return svc, mock, now
}

var alice = &auth.Identity{UserID: 1, Role: auth.RoleUser}

func expectLockBook(mock sqlmock.Sqlmock, available bool) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM books WHERE isbn_number = ? FOR UPDATE")).
		WithArgs("1234567890").
		WillReturnRows(sqlmock.NewRows([]string{"isbn_number", "availability_status"}).AddRow("1234567890", available))
}

func expectNoOpenRecord(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("AND status = 'borrowed'\nLIMIT 1 FOR UPDATE")).
		WithArgs(int64(1), "1234567890").
		WillReturnRows(sqlmock.NewRows(recordCols))
}

func TestSQLBorrowCommitsBothWrites(t *testing.T) {
	svc, mock, now := newMockService(t)

	mock.ExpectBegin()
	expectLockBook(mock, true)
	expectNoOpenRecord(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO borrow_records")).
		WithArgs("01JNKQ3D6Z8X0000000000000A", int64(1), "1234567890", now).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET availability_status = ? WHERE isbn_number = ?")).
		WithArgs(false, "1234567890").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := svc.Borrow(context.Background(), alice, BorrowRequest{BookID: "1234567890"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), rec.ID)
	assert.Equal(t, StatusBorrowed, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBorrowUnavailableRollsBack(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectLockBook(mock, false)
	expectNoOpenRecord(mock)
	mock.ExpectRollback()

	_, err := svc.Borrow(context.Background(), alice, BorrowRequest{BookID: "1234567890"})
	assert.True(t, apierr.Is(err, apierr.CodeNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBorrowDuplicateOpenRecord(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectLockBook(mock, true)
	expectNoOpenRecord(mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO borrow_records")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_borrow_records_open'"})
	mock.ExpectRollback()

	_, err := svc.Borrow(context.Background(), alice, BorrowRequest{BookID: "1234567890"})
	assert.True(t, apierr.Is(err, apierr.CodeNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBorrowMissingBook(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("1234567890").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Borrow(context.Background(), alice, BorrowRequest{BookID: "1234567890"})
	assert.True(t, apierr.Is(err, apierr.CodeNotAvailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReturnKeepsFlagWhileOtherRecordsOpen(t *testing.T) {
	svc, mock, now := newMockService(t)
	borrowed := now.Add(-time.Hour)

	mock.ExpectBegin()
	expectLockBook(mock, false)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 1 FOR UPDATE")).
		WithArgs(int64(1), "1234567890").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(5, "01JNK", 1, "1234567890", borrowed, nil, "borrowed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE borrow_records SET status = 'returned', return_date = ?")).
		WithArgs(now, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM borrow_records")).
		WithArgs("1234567890").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	rec, err := svc.Return(context.Background(), alice, "1234567890")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, rec.Status)
	require.NotNil(t, rec.ReturnDate)
	assert.Equal(t, now, *rec.ReturnDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReturnFreesBook(t *testing.T) {
	svc, mock, now := newMockService(t)

	mock.ExpectBegin()
	expectLockBook(mock, false)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 1 FOR UPDATE")).
		WithArgs(int64(1), "1234567890").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(5, "01JNK", 1, "1234567890", now, nil, "borrowed"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE borrow_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET availability_status = ?")).
		WithArgs(true, "1234567890").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Return(context.Background(), alice, "1234567890")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReturnDriverErrorRollsBack(t *testing.T) {
	svc, mock, _ := newMockService(t)

	mock.ExpectBegin()
	expectLockBook(mock, false)
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 1 FOR UPDATE")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := svc.Return(context.Background(), alice, "1234567890")
	require.Error(t, err)
	assert.Equal(t, 500, apierr.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLListByUser(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	s := NewStore(sqlx.NewDb(raw, "mysql"))

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? ORDER BY borrow_date DESC")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(2, "B", 3, "1234567890", now, now, "returned").
			AddRow(1, "A", 3, "1234567890", now.Add(-time.Hour), nil, "borrowed"))

	mock.ExpectCommit()

	rs, err := s.ListByUser(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.True(t, rs[0].ReturnDate.Valid)
	assert.True(t, rs[1].Open())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLListByUserUnknownUser(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	svc := NewService(NewStore(sqlx.NewDb(raw, "mysql")))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	lib := &auth.Identity{UserID: 1, Role: auth.RoleLibrarian}
	_, err = svc.History(context.Background(), lib, 42)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
