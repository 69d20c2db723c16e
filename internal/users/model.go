package users

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64         `db:"id"`
	Name         string        `db:"name"`
	Email        string        `db:"email"`
	PasswordHash string        `db:"password_hash"`
	PhoneNumber  sql.NullInt64 `db:"phone_number"`
	Role         string        `db:"role"`
	CreatedAt    time.Time     `db:"created_at"`
}
