package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	mysql "github.com/go-sql-driver/mysql"

	"library-backend/internal/platform/apierr"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	mu         sync.Mutex
	nextCat    int64
	categories map[int64]*Category
	books      map[string]*Book
	history    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]*Category{},
		books:      map[string]*Book{},
		history:    map[string]bool{},
	}
}

func (m *memStore) CreateCategory(_ context.Context, c *Category) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) || existing.Slug == c.Slug {
			return 0, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
	}
	m.nextCat++
	cp := *c
	cp.ID = m.nextCat
	m.categories[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListCategories(context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Category{}
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CategoryInUse(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.CategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return 0, nil
	}
	delete(m.categories, id)
	return 1, nil
}

func (m *memStore) CreateBook(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.books[b.ISBN] = &cp
	return nil
}

func (m *memStore) GetBook(_ context.Context, isbn string) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListBooks(context.Context) ([]Book, error) {
	return m.SearchBooks(context.Background(), SearchFilter{})
}

func (m *memStore) SearchBooks(_ context.Context, f SearchFilter) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	title := strings.ToLower(cleanText(f.Title))
	author := strings.ToLower(cleanText(f.Author))
	out := []Book{}
	for _, b := range m.books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			continue
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
			continue
		}
		if f.CategoryID != nil && b.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) UpdateBook(_ context.Context, isbn string, mutate func(b *Book) error) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[isbn]
	if !ok {
		return nil, apierr.NotFound("book not found")
	}
	cp := *b
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	m.books[isbn] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) BookHasHistory(_ context.Context, isbn string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[isbn], nil
}

func (m *memStore) DeleteBook(_ context.Context, isbn string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[isbn]; !ok {
		return 0, nil
	}
	delete(m.books, isbn)
	return 1, nil
}
