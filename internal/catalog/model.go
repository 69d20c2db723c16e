package catalog

import "time"

type Category struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

type Book struct {
	ISBN       string    `db:"isbn_number"`
	Title      string    `db:"title"`
	Author     string    `db:"author"`
	CategoryID int64     `db:"category_id"`
	Available  bool      `db:"availability_status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// SearchFilter fields are optional; set ones are AND-ed.
type SearchFilter struct {
	Title      string
	Author     string
	CategoryID *int64
}
