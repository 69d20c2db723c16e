package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/db"
)

type SQLLedger struct{ db *sqlx.DB }

func NewStore(db *sqlx.DB) *SQLLedger { return &SQLLedger{db: db} }

const recordColumns = `id, record_ulid, user_id, book_id, borrow_date, return_date, status`

// WithinTx runs fn under READ COMMITTED; the row locks taken inside keep
// concurrent borrows of one book serialized.
func (s *SQLLedger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	return db.Locking(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &sqlTx{q: tx})
	})
}

func (s *SQLLedger) ListByUser(ctx context.Context, userID int64) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM borrow_records WHERE user_id = ? ORDER BY borrow_date DESC, id DESC`
	out := []Record{}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID); err != nil {
			return err
		}
		if !exists {
			return ErrUnknownUser
		}
		return tx.SelectContext(ctx, &out, q, userID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLLedger) ListOpen(ctx context.Context) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM borrow_records WHERE status = 'borrowed' ORDER BY borrow_date, id`
	out := []Record{}
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

type sqlTx struct{ q db.DBTX }

func (t *sqlTx) LockBook(ctx context.Context, isbn string) (*BookState, error) {
	const q = `SELECT isbn_number, availability_status FROM books WHERE isbn_number = ? FOR UPDATE`
	var b BookState
	if err := t.q.GetContext(ctx, &b, q, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (t *sqlTx) FindOpenRecord(ctx context.Context, userID int64, isbn string) (*Record, error) {
	q := `SELECT ` + recordColumns + ` FROM borrow_records
WHERE user_id = ? AND book_id = ? AND status = 'borrowed'
LIMIT 1 FOR UPDATE`
	var r Record
	if err := t.q.GetContext(ctx, &r, q, userID, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (t *sqlTx) CountOpenRecords(ctx context.Context, isbn string) (int, error) {
	const q = `SELECT COUNT(*) FROM borrow_records WHERE book_id = ? AND status = 'borrowed'`
	var n int
	err := t.q.GetContext(ctx, &n, q, isbn)
	return n, err
}

func (t *sqlTx) InsertRecord(ctx context.Context, r *Record) error {
	const q = `
INSERT INTO borrow_records (record_ulid, user_id, book_id, borrow_date, return_date, status)
VALUES (?, ?, ?, ?, NULL, 'borrowed')`
	res, err := t.q.ExecContext(ctx, q, r.ULID, r.UserID, r.BookID, r.BorrowDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	r.Status = StatusBorrowed
	return nil
}

func (t *sqlTx) MarkReturned(ctx context.Context, recordID int64, at time.Time) error {
	const q = `UPDATE borrow_records SET status = 'returned', return_date = ? WHERE id = ? AND status = 'borrowed'`
	res, err := t.q.ExecContext(ctx, q, at, recordID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("mark record %d returned: %d rows affected", recordID, n)
	}
	return nil
}

func (t *sqlTx) SetAvailability(ctx context.Context, isbn string, available bool) error {
	const q = `UPDATE books SET availability_status = ? WHERE isbn_number = ?`
	_, err := t.q.ExecContext(ctx, q, available, isbn)
	return err
}
