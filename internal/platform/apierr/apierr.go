package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	mysql "github.com/go-sql-driver/mysql"
)

type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeNotAvailable    Code = "NOT_AVAILABLE"
	CodeAlreadyBorrowed Code = "ALREADY_BORROWED"
	CodeNoActiveBorrow  Code = "NO_ACTIVE_BORROW"
	CodeValidation      Code = "VALIDATION_FAILED"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Unauthenticated(msg string) *APIError { return &APIError{Code: CodeUnauthenticated, Message: msg} }
func UserNotFound(msg string) *APIError    { return &APIError{Code: CodeUserNotFound, Message: msg} }
func Forbidden(msg string) *APIError       { return &APIError{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) *APIError        { return &APIError{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) *APIError        { return &APIError{Code: CodeConflict, Message: msg} }
func NotAvailable(msg string) *APIError    { return &APIError{Code: CodeNotAvailable, Message: msg} }
func AlreadyBorrowed(msg string) *APIError { return &APIError{Code: CodeAlreadyBorrowed, Message: msg} }
func NoActiveBorrow(msg string) *APIError  { return &APIError{Code: CodeNoActiveBorrow, Message: msg} }
func Validation(msg string) *APIError      { return &APIError{Code: CodeValidation, Message: msg} }
func InvalidArgument(msg string) *APIError { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func TooManyRequests(msg string) *APIError { return &APIError{Code: CodeTooManyRequests, Message: msg} }
func Internal(msg string) *APIError        { return &APIError{Code: CodeInternal, Message: msg} }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

// FromValidation converts an ozzo-validation result into VALIDATION_FAILED.
// Anything that is not a validation.Errors value is returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	return Validation(strings.TrimSuffix(verrs.Error(), "."))
}

func HTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeUnauthenticated, CodeUserNotFound:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeNotAvailable, CodeAlreadyBorrowed, CodeNoActiveBorrow:
			return http.StatusConflict
		case CodeValidation:
			return http.StatusUnprocessableEntity
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeTooManyRequests:
			return http.StatusTooManyRequests
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ===== MySQL error classification =====

const (
	mysqlDuplicateKey    = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func mysqlNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func IsDuplicateKey(err error) bool     { return mysqlNumber(err) == mysqlDuplicateKey }
func IsRowReferenced(err error) bool    { return mysqlNumber(err) == mysqlRowIsReferenced }
func IsMissingReference(err error) bool { return mysqlNumber(err) == mysqlNoReferencedRow }
