package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Unauthenticated("x"), http.StatusUnauthorized},
		{UserNotFound("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{NotAvailable("x"), http.StatusConflict},
		{AlreadyBorrowed("x"), http.StatusConflict},
		{NoActiveBorrow("x"), http.StatusConflict},
		{Validation("x"), http.StatusUnprocessableEntity},
		{InvalidArgument("x"), http.StatusBadRequest},
		{TooManyRequests("x"), http.StatusTooManyRequests},
		{Internal("x"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("book")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("borrow: %w", AlreadyBorrowed("already"))
	assert.True(t, Is(err, CodeAlreadyBorrowed))
	assert.False(t, Is(err, CodeNotAvailable))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestFromValidation(t *testing.T) {
	type req struct{ Name string }
	r := req{Name: "a"}
	err := validation.ValidateStruct(&r, validation.Field(&r.Name, validation.Length(3, 50)))
	require.Error(t, err)

	got := FromValidation(err)
	assert.True(t, Is(got, CodeValidation))
	assert.Contains(t, got.Error(), "the length must be between 3 and 50")

	assert.NoError(t, FromValidation(nil))
	plain := errors.New("db down")
	assert.Same(t, plain, FromValidation(plain))
}

func TestMySQLClassification(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.True(t, IsDuplicateKey(dup))
	assert.False(t, IsRowReferenced(dup))

	assert.True(t, IsRowReferenced(&mysql.MySQLError{Number: 1451}))
	assert.True(t, IsMissingReference(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsDuplicateKey(errors.New("other")))
}

func TestRespondHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/books", nil)

	Respond(c, errors.New("dial tcp: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL","message":"internal server error"}}`, w.Body.String())
}

func TestAbortStopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/profile", nil)

	Abort(c, Unauthenticated("missing Authorization header"))

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"code":"UNAUTHENTICATED","message":"missing Authorization header"}}`, w.Body.String())
}
