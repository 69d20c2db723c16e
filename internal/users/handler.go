package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterPublicRoutes mounts the endpoints that need no credential.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
}

// RegisterRoutes mounts the endpoints behind auth.RequireAuth.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/profile", h.Profile)
}

// Register godoc
// @Summary  Register a user
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "new user"
// @Success  201 {object} MessageResponse
// @Failure  409 {object} apierr.APIError
// @Failure  422 {object} apierr.APIError
// @Router   /register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: "user registered successfully", User: u})
}

// Login godoc
// @Summary  Exchange credentials for a bearer token
// @Tags     users
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} LoginResponse
// @Failure  401 {object} apierr.APIError
// @Failure  429 {object} apierr.APIError
// @Router   /login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Profile godoc
// @Summary  Current user
// @Tags     users
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} UserResponse
// @Router   /profile [get]
func (h *Handler) Profile(c *gin.Context) {
	ident, ok := auth.IdentityFrom(c)
	if !ok {
		apierr.Respond(c, apierr.Unauthenticated("not authenticated"))
		return
	}
	res, err := h.svc.Profile(c.Request.Context(), ident.UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	// Report the role the request was authorized with.
	res.Role = ident.Role
	c.JSON(http.StatusOK, res)
}
