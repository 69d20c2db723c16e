package borrowing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts the borrowing endpoints. r must sit behind
// auth.RequireAuth.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/borrow", h.Borrow)
	r.POST("/return/:book_id", h.Return)
	r.GET("/borrow-history", h.MyHistory)
	r.GET("/borrow-history/:user_id", h.UserHistory)
}

// RegisterLibrarianRoutes mounts the librarian-only views.
func RegisterLibrarianRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/borrowings/active", h.ActiveLoans)
}

func identity(c *gin.Context) (*auth.Identity, bool) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		apierr.Respond(c, apierr.Unauthenticated("not authenticated"))
	}
	return ident, ok
}

// Borrow godoc
// @Summary  Borrow a book
// @Tags     borrowing
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body BorrowRequest true "book to borrow"
// @Success  201 {object} ActionResponse
// @Failure  409 {object} apierr.APIError "NOT_AVAILABLE or ALREADY_BORROWED"
// @Router   /borrow [post]
func (h *Handler) Borrow(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	rec, err := h.svc.Borrow(c.Request.Context(), ident, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, ActionResponse{Message: "book borrowed successfully", Record: *rec})
}

// Return godoc
// @Summary  Return a borrowed book
// @Tags     borrowing
// @Produce  json
// @Security BearerAuth
// @Param    book_id path string true "ISBN"
// @Success  200 {object} ActionResponse
// @Failure  409 {object} apierr.APIError "NO_ACTIVE_BORROW"
// @Router   /return/{book_id} [post]
func (h *Handler) Return(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.svc.Return(c.Request.Context(), ident, c.Param("book_id"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ActionResponse{Message: "book returned successfully", Record: *rec})
}

// MyHistory godoc
// @Summary  Caller's borrow history
// @Tags     borrowing
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} RecordResponse
// @Router   /borrow-history [get]
func (h *Handler) MyHistory(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	h.history(c, ident, ident.UserID)
}

// UserHistory godoc
// @Summary  A user's borrow history (self or librarian)
// @Tags     borrowing
// @Produce  json
// @Security BearerAuth
// @Param    user_id path int true "user id"
// @Success  200 {array} RecordResponse
// @Failure  403 {object} apierr.APIError
// @Failure  404 {object} apierr.APIError
// @Router   /borrow-history/{user_id} [get]
func (h *Handler) UserHistory(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		apierr.Respond(c, apierr.InvalidArgument("invalid user_id"))
		return
	}
	h.history(c, ident, userID)
}

func (h *Handler) history(c *gin.Context, ident *auth.Identity, userID int64) {
	res, err := h.svc.History(c.Request.Context(), ident, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ActiveLoans godoc
// @Summary  All open borrow records
// @Tags     borrowing
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} RecordResponse
// @Router   /borrowings/active [get]
func (h *Handler) ActiveLoans(c *gin.Context) {
	res, err := h.svc.ActiveLoans(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
