package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "library-backend/docs"
	"library-backend/internal/borrowing"
	"library-backend/internal/catalog"
	"library-backend/internal/platform/apierr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/config"
	"library-backend/internal/platform/logging"
	"library-backend/internal/users"
)

// Deps is everything the router needs; main builds it.
type Deps struct {
	Mode         string
	AllowOrigins []string

	Tokens    *auth.TokenManager
	Users     *users.Service
	Catalog   *catalog.Service
	Borrowing *borrowing.Service

	// Ping backs /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logging.RequestID(), logging.AccessLog(), logging.Recovery())
	_ = r.SetTrustedProxies(nil)

	if d.Mode == config.ModeDev && len(d.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if d.Mode == config.ModeDev {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		apierr.Respond(c, apierr.NotFound("route not found"))
	})

	r.GET("/home", home)
	r.GET("/healthz", healthz(d.Ping))

	users.RegisterPublicRoutes(r, d.Users)
	catalog.RegisterPublicRoutes(r, d.Catalog)

	authed := r.Group("/", auth.RequireAuth(d.Tokens, d.Users))
	users.RegisterRoutes(authed, d.Users)
	catalog.RegisterRoutes(authed, d.Catalog)
	borrowing.RegisterRoutes(authed, d.Borrowing)

	librarian := authed.Group("/", auth.RequireRole(auth.RoleLibrarian))
	catalog.RegisterLibrarianRoutes(librarian, d.Catalog)
	borrowing.RegisterLibrarianRoutes(librarian, d.Borrowing)

	return r
}

func home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the library management system"})
}

func healthz(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
