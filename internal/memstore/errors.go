package memstore

import (
	"errors"

	"library-backend/internal/platform/apierr"
)

var (
	notFoundBook    = apierr.NotFound("book not found")
	errNoOpenRecord = errors.New("memstore: record is not open")
)
