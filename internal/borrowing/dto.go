package borrowing

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type BorrowRequest struct {
	BookID string `json:"book_id"`
}

func (r BorrowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required, validation.RuneLength(10, 13)),
	)
}

func cleanISBN(s string) string { return strings.TrimSpace(s) }

type RecordResponse struct {
	ID         int64      `json:"id"`
	RecordID   string     `json:"record_id"`
	UserID     int64      `json:"user_id"`
	BookID     string     `json:"book_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `json:"status"`
}

type ActionResponse struct {
	Message string         `json:"message"`
	Record  RecordResponse `json:"record"`
}

func toRecordResponse(r *Record) RecordResponse {
	res := RecordResponse{
		ID:         r.ID,
		RecordID:   r.ULID,
		UserID:     r.UserID,
		BookID:     r.BookID,
		BorrowDate: r.BorrowDate,
		Status:     r.Status,
	}
	if r.ReturnDate.Valid {
		t := r.ReturnDate.Time
		res.ReturnDate = &t
	}
	return res
}

func toRecordList(rs []Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(rs))
	for i := range rs {
		out = append(out, toRecordResponse(&rs[i]))
	}
	return out
}
