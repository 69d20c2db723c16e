package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"library-backend/internal/platform/apierr"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// ===== categories =====

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	req.Name = cleanText(req.Name)
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}
	sl := slug.Make(req.Name)
	if sl == "" {
		return nil, apierr.Validation("name: must contain letters or digits")
	}

	c := &Category{Name: req.Name, Slug: sl, CreatedAt: s.now()}
	id, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		if apierr.IsDuplicateKey(err) {
			return nil, apierr.Conflict("category already exists")
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	c.ID = id

	log.Info().Int64("category_id", id).Str("slug", sl).Msg("category created")
	res := toCategoryResponse(c)
	return &res, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*CategoryResponse, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apierr.NotFound("category not found")
	}
	res := toCategoryResponse(c)
	return &res, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]CategoryResponse, error) {
	cs, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toCategoryResponse(&cs[i]))
	}
	return out, nil
}

// DeleteCategory refuses to remove a category that any book still uses.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apierr.NotFound("category not found")
	}
	used, err := s.store.CategoryInUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return apierr.Conflict("category is referenced by books")
	}

	n, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		if apierr.IsRowReferenced(err) {
			return apierr.Conflict("category is referenced by books")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return apierr.NotFound("category not found")
	}
	log.Info().Int64("category_id", id).Msg("category deleted")
	return nil
}

// ===== books =====

func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	req.ISBN = cleanText(req.ISBN)
	req.Title = cleanText(req.Title)
	req.Author = cleanText(req.Author)
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}

	existing, err := s.store.GetBook(ctx, req.ISBN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierr.Conflict("book with this ISBN already exists")
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	b := &Book{
		ISBN:       req.ISBN,
		Title:      req.Title,
		Author:     req.Author,
		CategoryID: req.CategoryID,
		Available:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateBook(ctx, b); err != nil {
		switch {
		case apierr.IsDuplicateKey(err):
			return nil, apierr.Conflict("book with this ISBN already exists")
		case apierr.IsMissingReference(err):
			return nil, apierr.NotFound("category not found")
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}

	log.Info().Str("isbn", b.ISBN).Msg("book created")
	res := toBookResponse(b)
	return &res, nil
}

func (s *Service) UpdateBook(ctx context.Context, isbn string, req UpdateBookRequest) (*BookResponse, error) {
	if req.Title != nil {
		t := cleanText(*req.Title)
		req.Title = &t
	}
	if req.Author != nil {
		a := cleanText(*req.Author)
		req.Author = &a
	}
	if err := req.Validate(); err != nil {
		return nil, apierr.FromValidation(err)
	}
	if req.CategoryID != nil {
		if err := s.requireCategory(ctx, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	b, err := s.store.UpdateBook(ctx, isbn, func(b *Book) error {
		if req.Title != nil {
			b.Title = *req.Title
		}
		if req.Author != nil {
			b.Author = *req.Author
		}
		if req.CategoryID != nil {
			b.CategoryID = *req.CategoryID
		}
		if !req.empty() {
			b.UpdatedAt = s.now()
		}
		return nil
	})
	if err != nil {
		if apierr.IsMissingReference(err) {
			return nil, apierr.NotFound("category not found")
		}
		return nil, err
	}

	log.Info().Str("isbn", b.ISBN).Msg("book updated")
	res := toBookResponse(b)
	return &res, nil
}

// DeleteBook refuses to remove a book that has ledger history.
func (s *Service) DeleteBook(ctx context.Context, isbn string) error {
	b, err := s.store.GetBook(ctx, isbn)
	if err != nil {
		return err
	}
	if b == nil {
		return apierr.NotFound("book not found")
	}
	used, err := s.store.BookHasHistory(ctx, isbn)
	if err != nil {
		return err
	}
	if used {
		return apierr.Conflict("book has borrow history")
	}

	n, err := s.store.DeleteBook(ctx, isbn)
	if err != nil {
		if apierr.IsRowReferenced(err) {
			return apierr.Conflict("book has borrow history")
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if n == 0 {
		return apierr.NotFound("book not found")
	}
	log.Info().Str("isbn", isbn).Msg("book deleted")
	return nil
}

func (s *Service) GetBook(ctx context.Context, isbn string) (*BookResponse, error) {
	b, err := s.store.GetBook(ctx, isbn)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apierr.NotFound("book not found")
	}
	res := toBookResponse(b)
	return &res, nil
}

func (s *Service) ListBooks(ctx context.Context) (BookListResponse, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return BookListResponse{}, err
	}
	return toBookList(books), nil
}

func (s *Service) SearchBooks(ctx context.Context, f SearchFilter) (BookListResponse, error) {
	if f.CategoryID != nil && *f.CategoryID <= 0 {
		return BookListResponse{}, apierr.Validation("category_id: must be no less than 1")
	}
	books, err := s.store.SearchBooks(ctx, f)
	if err != nil {
		return BookListResponse{}, err
	}
	return toBookList(books), nil
}

func (s *Service) requireCategory(ctx context.Context, id int64) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apierr.NotFound("category not found")
	}
	return nil
}
