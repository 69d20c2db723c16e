package borrowing

import (
	"database/sql"
	"time"
)

const (
	StatusBorrowed = "borrowed"
	StatusReturned = "returned"
)

type Record struct {
	ID         int64        `db:"id"`
	ULID       string       `db:"record_ulid"`
	UserID     int64        `db:"user_id"`
	BookID     string       `db:"book_id"`
	BorrowDate time.Time    `db:"borrow_date"`
	ReturnDate sql.NullTime `db:"return_date"`
	Status     string       `db:"status"`
}

func (r *Record) Open() bool { return r.Status == StatusBorrowed }

// BookState is the part of a book row the engine locks and flips.
type BookState struct {
	ISBN      string `db:"isbn_number"`
	Available bool   `db:"availability_status"`
}
