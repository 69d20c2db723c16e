// Package memstore keeps users, the catalog and the borrow ledger in process
// memory behind the same interfaces as the MySQL stores. It backs
// `serve --memory` and the HTTP tests. Constraint violations are reported
// as the MySQL errors the services already classify.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"library-backend/internal/borrowing"
	"library-backend/internal/catalog"
	"library-backend/internal/users"
)

func duplicate(msg string) error  { return &mysql.MySQLError{Number: 1062, Message: msg} }
func referenced(msg string) error { return &mysql.MySQLError{Number: 1451, Message: msg} }
func missingRef(msg string) error { return &mysql.MySQLError{Number: 1452, Message: msg} }

// DB is the shared state. A single mutex stands in for row locks: a ledger
// transaction holds it from start to commit.
type DB struct {
	mu sync.Mutex

	users    map[int64]users.User
	nextUser int64

	categories map[int64]catalog.Category
	nextCat    int64
	books      map[string]catalog.Book

	records    []borrowing.Record
	nextRecord int64
}

func New() *DB {
	return &DB{
		users:      map[int64]users.User{},
		categories: map[int64]catalog.Category{},
		books:      map[string]catalog.Book{},
	}
}

func (d *DB) Users() users.Store       { return userStore{d} }
func (d *DB) Catalog() catalog.Store   { return catalogStore{d} }
func (d *DB) Ledger() borrowing.Ledger { return ledger{d} }

// ===== users =====

type userStore struct{ d *DB }

func (s userStore) Create(_ context.Context, u *users.User) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.users {
		if existing.Email == u.Email {
			return 0, duplicate("users.email")
		}
	}
	s.d.nextUser++
	cp := *u
	cp.ID = s.d.nextUser
	s.d.users[cp.ID] = cp
	return cp.ID, nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, u := range s.d.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s userStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ===== catalog =====

type catalogStore struct{ d *DB }

func (s catalogStore) CreateCategory(_ context.Context, c *catalog.Category) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, existing := range s.d.categories {
		if strings.EqualFold(existing.Name, c.Name) || existing.Slug == c.Slug {
			return 0, duplicate("categories.name")
		}
	}
	s.d.nextCat++
	cp := *c
	cp.ID = s.d.nextCat
	s.d.categories[cp.ID] = cp
	return cp.ID, nil
}

func (s catalogStore) GetCategory(_ context.Context, id int64) (*catalog.Category, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s catalogStore) ListCategories(context.Context) ([]catalog.Category, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := make([]catalog.Category, 0, len(s.d.categories))
	for _, c := range s.d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s catalogStore) CategoryInUse(_ context.Context, id int64) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.categoryInUse(id), nil
}

func (d *DB) categoryInUse(id int64) bool {
	for _, b := range d.books {
		if b.CategoryID == id {
			return true
		}
	}
	return false
}

func (s catalogStore) DeleteCategory(_ context.Context, id int64) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.categories[id]; !ok {
		return 0, nil
	}
	if s.d.categoryInUse(id) {
		return 0, referenced("books.category_id")
	}
	delete(s.d.categories, id)
	return 1, nil
}

func (s catalogStore) CreateBook(_ context.Context, b *catalog.Book) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.books[b.ISBN]; ok {
		return duplicate("books.PRIMARY")
	}
	if _, ok := s.d.categories[b.CategoryID]; !ok {
		return missingRef("books.category_id")
	}
	s.d.books[b.ISBN] = *b
	return nil
}

func (s catalogStore) GetBook(_ context.Context, isbn string) (*catalog.Book, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	b, ok := s.d.books[isbn]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s catalogStore) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	return s.SearchBooks(ctx, catalog.SearchFilter{})
}

func (s catalogStore) SearchBooks(_ context.Context, f catalog.SearchFilter) ([]catalog.Book, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	title := strings.ToLower(strings.TrimSpace(f.Title))
	author := strings.ToLower(strings.TrimSpace(f.Author))

	out := []catalog.Book{}
	for _, b := range s.d.books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
			continue
		}
		if f.CategoryID != nil && b.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ISBN < out[j].ISBN
	})
	return out, nil
}

func (s catalogStore) UpdateBook(_ context.Context, isbn string, mutate func(b *catalog.Book) error) (*catalog.Book, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	b, ok := s.d.books[isbn]
	if !ok {
		return nil, notFoundBook
	}
	if err := mutate(&b); err != nil {
		return nil, err
	}
	if _, ok := s.d.categories[b.CategoryID]; !ok {
		return nil, missingRef("books.category_id")
	}
	// The flag belongs to the ledger; an update never changes it.
	b.Available = s.d.books[isbn].Available
	s.d.books[isbn] = b
	return &b, nil
}

func (s catalogStore) BookHasHistory(_ context.Context, isbn string) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.d.bookHasHistory(isbn), nil
}

func (d *DB) bookHasHistory(isbn string) bool {
	for _, r := range d.records {
		if r.BookID == isbn {
			return true
		}
	}
	return false
}

func (s catalogStore) DeleteBook(_ context.Context, isbn string) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.books[isbn]; !ok {
		return 0, nil
	}
	if s.d.bookHasHistory(isbn) {
		return 0, referenced("borrow_records.book_id")
	}
	delete(s.d.books, isbn)
	return 1, nil
}

// ===== ledger =====

type ledger struct{ d *DB }

func (l ledger) WithinTx(ctx context.Context, fn func(ctx context.Context, tx borrowing.LedgerTx) error) error {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	tx := &memTx{d: l.d, books: map[string]catalog.Book{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (l ledger) ListByUser(_ context.Context, userID int64) ([]borrowing.Record, error) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	if _, ok := l.d.users[userID]; !ok {
		return nil, borrowing.ErrUnknownUser
	}
	out := []borrowing.Record{}
	for _, r := range l.d.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (l ledger) ListOpen(context.Context) ([]borrowing.Record, error) {
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	out := []borrowing.Record{}
	for _, r := range l.d.records {
		if r.Open() {
			out = append(out, r)
		}
	}
	return out, nil
}

// memTx stages writes and applies them on commit, so a failed transaction
// leaves DB untouched. The caller holds d.mu.
type memTx struct {
	d        *DB
	books    map[string]catalog.Book
	inserted []borrowing.Record
	returned map[int64]time.Time
}

func (t *memTx) book(isbn string) (catalog.Book, bool) {
	if b, ok := t.books[isbn]; ok {
		return b, true
	}
	b, ok := t.d.books[isbn]
	return b, ok
}

// view is the committed records plus this transaction's writes.
func (t *memTx) view() []borrowing.Record {
	out := make([]borrowing.Record, 0, len(t.d.records)+len(t.inserted))
	for _, r := range t.d.records {
		if at, ok := t.returned[r.ID]; ok {
			r.Status = borrowing.StatusReturned
			r.ReturnDate.Time = at
			r.ReturnDate.Valid = true
		}
		out = append(out, r)
	}
	return append(out, t.inserted...)
}

func (t *memTx) LockBook(_ context.Context, isbn string) (*borrowing.BookState, error) {
	b, ok := t.book(isbn)
	if !ok {
		return nil, nil
	}
	return &borrowing.BookState{ISBN: b.ISBN, Available: b.Available}, nil
}

func (t *memTx) FindOpenRecord(_ context.Context, userID int64, isbn string) (*borrowing.Record, error) {
	for _, r := range t.view() {
		if r.UserID == userID && r.BookID == isbn && r.Open() {
			return &r, nil
		}
	}
	return nil, nil
}

func (t *memTx) CountOpenRecords(_ context.Context, isbn string) (int, error) {
	n := 0
	for _, r := range t.view() {
		if r.BookID == isbn && r.Open() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertRecord(_ context.Context, r *borrowing.Record) error {
	if _, ok := t.d.users[r.UserID]; !ok {
		return missingRef("borrow_records.user_id")
	}
	if _, ok := t.book(r.BookID); !ok {
		return missingRef("borrow_records.book_id")
	}
	for _, existing := range t.view() {
		if existing.BookID == r.BookID && existing.Open() {
			return duplicate("borrow_records.uq_borrow_records_open")
		}
	}
	t.d.nextRecord++
	r.ID = t.d.nextRecord
	r.Status = borrowing.StatusBorrowed
	t.inserted = append(t.inserted, *r)
	return nil
}

func (t *memTx) MarkReturned(_ context.Context, recordID int64, at time.Time) error {
	for i := range t.inserted {
		if t.inserted[i].ID == recordID && t.inserted[i].Open() {
			t.inserted[i].Status = borrowing.StatusReturned
			t.inserted[i].ReturnDate.Time = at
			t.inserted[i].ReturnDate.Valid = true
			return nil
		}
	}
	for _, r := range t.d.records {
		if r.ID == recordID && r.Open() {
			if _, done := t.returned[recordID]; done {
				break
			}
			if t.returned == nil {
				t.returned = map[int64]time.Time{}
			}
			t.returned[recordID] = at
			return nil
		}
	}
	return errNoOpenRecord
}

func (t *memTx) SetAvailability(_ context.Context, isbn string, available bool) error {
	b, ok := t.book(isbn)
	if !ok {
		return nil
	}
	b.Available = available
	t.books[isbn] = b
	return nil
}

func (t *memTx) commit() {
	for isbn, b := range t.books {
		b.UpdatedAt = time.Now().UTC()
		t.d.books[isbn] = b
	}
	for i := range t.d.records {
		if at, ok := t.returned[t.d.records[i].ID]; ok {
			t.d.records[i].Status = borrowing.StatusReturned
			t.d.records[i].ReturnDate.Time = at
			t.d.records[i].ReturnDate.Valid = true
		}
	}
	t.d.records = append(t.d.records, t.inserted...)
}
