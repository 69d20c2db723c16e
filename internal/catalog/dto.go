package catalog

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (r CreateCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(2, 50)),
	)
}

type CategoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func isbnRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.RuneLength(10, 13)}
}

type CreateBookRequest struct {
	ISBN       string `json:"isbn_number"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	CategoryID int64  `json:"category_id"`
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ISBN, isbnRules()...),
		validation.Field(&r.Title, validation.Required, validation.RuneLength(3, 255)),
		validation.Field(&r.Author, validation.Required, validation.RuneLength(3, 255)),
		validation.Field(&r.CategoryID, validation.Required, validation.Min(int64(1))),
	)
}

// UpdateBookRequest has no availability field: only the borrowing engine
// moves that flag.
type UpdateBookRequest struct {
	Title      *string `json:"title,omitempty"`
	Author     *string `json:"author,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
}

func (r UpdateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.When(r.Title != nil, validation.Required, validation.RuneLength(3, 255))),
		validation.Field(&r.Author, validation.When(r.Author != nil, validation.Required, validation.RuneLength(3, 255))),
		validation.Field(&r.CategoryID, validation.When(r.CategoryID != nil, validation.Min(int64(1)))),
	)
}

func (r UpdateBookRequest) empty() bool {
	return r.Title == nil && r.Author == nil && r.CategoryID == nil
}

type BookResponse struct {
	ISBN               string    `json:"isbn_number"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	CategoryID         int64     `json:"category_id"`
	AvailabilityStatus bool      `json:"availability_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type BookListResponse struct {
	Books []BookResponse `json:"books"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toCategoryResponse(c *Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, CreatedAt: c.CreatedAt}
}

func toBookResponse(b *Book) BookResponse {
	return BookResponse{
		ISBN:               b.ISBN,
		Title:              b.Title,
		Author:             b.Author,
		CategoryID:         b.CategoryID,
		AvailabilityStatus: b.Available,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toBookList(books []Book) BookListResponse {
	out := BookListResponse{Books: make([]BookResponse, 0, len(books))}
	for i := range books {
		out.Books = append(out.Books, toBookResponse(&books[i]))
	}
	return out
}
