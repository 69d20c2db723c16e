package borrowing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() (string, error)
}

// ulidGen shares one monotonic entropy source so ids minted in the same
// millisecond still sort in creation order.
type ulidGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newULIDGen() *ulidGen {
	return &ulidGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ulidGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Service moves books between available and borrowed. Each transition
// locks the book row first and commits the ledger and flag writes together.
type Service struct {
	ledger Ledger
	clock  Clock
	ids    IDGen
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger, clock: realClock{}, ids: newULIDGen()}
}

// WithClock replaces the time source.
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

func (s *Service) Borrow(ctx context.Context, who *auth.Identity, req BorrowRequest) (*RecordResponse, error) {
	req.BookID = cleanISBN(req.BookID)
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}

	recID, err := s.ids.New()
	if err != nil {
		return nil, fmt.Errorf("new record id: %w", err)
	}

	var rec *Record
	err = s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		book, err := tx.LockBook(ctx, req.BookID)
		if err != nil {
			return err
		}
		if book == nil {
			return apierr.NotAvailable("book not found or not available")
		}

		open, err := tx.FindOpenRecord(ctx, who.UserID, req.BookID)
		if err != nil {
			return err
		}
		if open != nil {
			return apierr.AlreadyBorrowed("you have already borrowed this book")
		}
		if !book.Available {
			return apierr.NotAvailable("book not found or not available")
		}

		r := &Record{
			ULID:       recID,
			UserID:     who.UserID,
			BookID:     req.BookID,
			BorrowDate: s.clock.Now(),
			Status:     StatusBorrowed,
		}
		if err := tx.InsertRecord(ctx, r); err != nil {
			if apierr.IsDuplicateKey(err) {
				return apierr.NotAvailable("book not found or not available")
			}
			return fmt.Errorf("insert borrow record: %w", err)
		}
		if err := tx.SetAvailability(ctx, req.BookID, false); err != nil {
			return fmt.Errorf("mark book unavailable: %w", err)
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", who.UserID).Str("isbn", rec.BookID).Str("record", rec.ULID).Msg("book borrowed")
	res := toRecordResponse(rec)
	return &res, nil
}

func (s *Service) Return(ctx context.Context, who *auth.Identity, isbn string) (*RecordResponse, error) {
	isbn = cleanISBN(isbn)

	var rec *Record
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		book, err := tx.LockBook(ctx, isbn)
		if err != nil {
			return err
		}
		if book == nil {
			return apierr.NoActiveBorrow("no active borrow record found for this book")
		}

		open, err := tx.FindOpenRecord(ctx, who.UserID, isbn)
		if err != nil {
			return err
		}
		if open == nil {
			return apierr.NoActiveBorrow("no active borrow record found for this book")
		}

		now := s.clock.Now()
		if err := tx.MarkReturned(ctx, open.ID, now); err != nil {
			return err
		}
		open.Status = StatusReturned
		open.ReturnDate.Time = now
		open.ReturnDate.Valid = true

		remaining, err := tx.CountOpenRecords(ctx, isbn)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.SetAvailability(ctx, isbn, true); err != nil {
				return fmt.Errorf("mark book available: %w", err)
			}
		}
		rec = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", who.UserID).Str("isbn", rec.BookID).Str("record", rec.ULID).Msg("book returned")
	res := toRecordResponse(rec)
	return &res, nil
}

// History lists userID's records, newest first. Callers other than the
// user need the librarian role.
func (s *Service) History(ctx context.Context, who *auth.Identity, userID int64) ([]RecordResponse, error) {
	if who.UserID != userID && !who.IsLibrarian() {
		return nil, apierr.Forbidden("not allowed to view another user's borrow history")
	}

	records, err := s.ledger.ListByUser(ctx, userID)
	if errors.Is(err, ErrUnknownUser) {
		return nil, apierr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return toRecordList(records), nil
}

func (s *Service) ActiveLoans(ctx context.Context) ([]RecordResponse, error) {
	records, err := s.ledger.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	return toRecordList(records), nil
}
