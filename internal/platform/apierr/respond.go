package apierr

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func Body(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

// Respond writes err as the JSON error body. Errors that are not *APIError are
// logged and hidden behind a generic INTERNAL message.
func Respond(c *gin.Context, err error) {
	var api *APIError
	if !errors.As(err, &api) {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("unhandled error")
		c.JSON(HTTPStatus(err), Body(CodeInternal, "internal server error"))
		return
	}
	c.JSON(HTTPStatus(err), Body(api.Code, api.Message))
}

// Abort is Respond for middleware: it stops the handler chain.
func Abort(c *gin.Context, err error) {
	Respond(c, err)
	c.Abort()
}
