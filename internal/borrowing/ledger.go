package borrowing

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownUser is returned by ListByUser when no user has the given id.
var ErrUnknownUser = errors.New("unknown user")

// Ledger is the storage the engine runs against. Every borrow or return
// happens inside WithinTx; nothing written there survives an error.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	// ListByUser is newest first. The user check and the listing read the
	// same snapshot.
	ListByUser(ctx context.Context, userID int64) ([]Record, error)
	ListOpen(ctx context.Context) ([]Record, error)
}

// LedgerTx methods run inside one transaction. LockBook must be called
// before any ledger row is touched.
type LedgerTx interface {
	// LockBook returns (nil, nil) when the book does not exist.
	LockBook(ctx context.Context, isbn string) (*BookState, error)
	// FindOpenRecord returns (nil, nil) when userID holds no open record for isbn.
	FindOpenRecord(ctx context.Context, userID int64, isbn string) (*Record, error)
	CountOpenRecords(ctx context.Context, isbn string) (int, error)
	InsertRecord(ctx context.Context, r *Record) error
	MarkReturned(ctx context.Context, recordID int64, at time.Time) error
	SetAvailability(ctx context.Context, isbn string, available bool) error
}
