package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterPublicRoutes mounts the category reads, which need no credential.
func RegisterPublicRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/categories", h.ListCategories)
	r.GET("/categories/:id", h.GetCategory)
}

// RegisterRoutes mounts the book reads for any authenticated caller.
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/", h.ListBooks)
	r.GET("/books/search", h.SearchBooks)
	r.GET("/books/:isbn", h.GetBook)
}

// RegisterLibrarianRoutes mounts the catalog mutations. The caller puts
// auth.RequireRole(auth.RoleLibrarian) in front.
func RegisterLibrarianRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/books", h.CreateBook)
	r.PUT("/books/:isbn", h.UpdateBook)
	r.DELETE("/books/:isbn", h.DeleteBook)
	r.POST("/categories", h.CreateCategory)
	r.DELETE("/categories/:id", h.DeleteCategory)
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		apierr.Respond(c, apierr.InvalidArgument("invalid "+name))
		return 0, false
	}
	return id, true
}

// ---------- categories ----------

// CreateCategory godoc
// @Summary  Create a category
// @Tags     categories
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateCategoryRequest true "category"
// @Success  201 {object} CategoryResponse
// @Failure  409 {object} apierr.APIError
// @Router   /categories [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	res, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/categories/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

// ListCategories godoc
// @Summary  List categories
// @Tags     categories
// @Produce  json
// @Success  200 {array} CategoryResponse
// @Router   /categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	res, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetCategory godoc
// @Summary  Get a category
// @Tags     categories
// @Produce  json
// @Param    id path int true "category id"
// @Success  200 {object} CategoryResponse
// @Failure  404 {object} apierr.APIError
// @Router   /categories/{id} [get]
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteCategory godoc
// @Summary  Delete a category
// @Tags     categories
// @Produce  json
// @Security BearerAuth
// @Param    id path int true "category id"
// @Success  200 {object} MessageResponse
// @Failure  404 {object} apierr.APIError
// @Failure  409 {object} apierr.APIError
// @Router   /categories/{id} [delete]
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "category deleted successfully"})
}

// ---------- books ----------

// CreateBook godoc
// @Summary  Add a book
// @Tags     books
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    body body CreateBookRequest true "book"
// @Success  201 {object} BookResponse
// @Failure  403 {object} apierr.APIError
// @Failure  409 {object} apierr.APIError
// @Router   /books [post]
func (h *Handler) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	res, err := h.svc.CreateBook(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/books/"+res.ISBN)
	c.JSON(http.StatusCreated, res)
}

// UpdateBook godoc
// @Summary  Partially update a book
// @Tags     books
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    isbn path string true "ISBN"
// @Param    body body UpdateBookRequest true "fields to change"
// @Success  200 {object} BookResponse
// @Failure  404 {object} apierr.APIError
// @Router   /books/{isbn} [put]
func (h *Handler) UpdateBook(c *gin.Context) {
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.InvalidArgument("invalid json"))
		return
	}
	res, err := h.svc.UpdateBook(c.Request.Context(), c.Param("isbn"), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteBook godoc
// @Summary  Delete a book
// @Tags     books
// @Produce  json
// @Security BearerAuth
// @Param    isbn path string true "ISBN"
// @Success  200 {object} MessageResponse
// @Failure  409 {object} apierr.APIError
// @Router   /books/{isbn} [delete]
func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.svc.DeleteBook(c.Request.Context(), c.Param("isbn")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "book deleted successfully"})
}

// GetBook godoc
// @Summary  Get a book by ISBN
// @Tags     books
// @Produce  json
// @Security BearerAuth
// @Param    isbn path string true "ISBN"
// @Success  200 {object} BookResponse
// @Failure  404 {object} apierr.APIError
// @Router   /books/{isbn} [get]
func (h *Handler) GetBook(c *gin.Context) {
	res, err := h.svc.GetBook(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListBooks godoc
// @Summary  List all books
// @Tags     books
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} BookResponse
// @Router   / [get]
func (h *Handler) ListBooks(c *gin.Context) {
	res, err := h.svc.ListBooks(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Books)
}

// SearchBooks godoc
// @Summary  Search books
// @Tags     books
// @Produce  json
// @Security BearerAuth
// @Param    title       query string false "title substring"
// @Param    author      query string false "author substring"
// @Param    category_id query int    false "category id"
// @Success  200 {object} BookListResponse
// @Router   /books/search [get]
func (h *Handler) SearchBooks(c *gin.Context) {
	f := SearchFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
	}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			apierr.Respond(c, apierr.InvalidArgument("invalid category_id"))
			return
		}
		f.CategoryID = &id
	}
	res, err := h.svc.SearchBooks(c.Request.Context(), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
