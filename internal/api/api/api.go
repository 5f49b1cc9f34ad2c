package api

import (
	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"mttsite/cmd/middleware"
	"mttsite/internal/service"
)

type Routers struct {
	Service service.Service
	Log     *zerolog.Logger
	// Per-IP limit for login, sign-up and event registration.
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouters(r *Routers) *ginext.Engine {
	if r.Log == nil {
		nop := zerolog.Nop()
		r.Log = &nop
	}
	if r.RateLimitRPS <= 0 {
		r.RateLimitRPS = 1
	}
	if r.RateLimitBurst <= 0 {
		r.RateLimitBurst = 5
	}
	h := &handlers{svc: r.Service, log: r.Log}
	limit := middleware.RateLimit(r.RateLimitRPS, r.RateLimitBurst)

	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware(r.Log))
	app.Use(cors.Default())

	app.GET("/health", h.Health)

	apiGroup := app.Group("/v1")
	apiGroup.GET("/events", h.ListEvents)
	apiGroup.GET("/events/:id", h.GetEvent)
	apiGroup.POST("/events/:id/register", limit, h.Register)
	apiGroup.GET("/blogs", h.ListPublishedBlogs)
	apiGroup.GET("/blogs/:slug", h.GetBlogBySlug)
	apiGroup.POST("/auth/register", limit, h.SignUp)
	apiGroup.POST("/auth/login", limit, h.Login)

	admin := apiGroup.Group("/admin", middleware.RequireAdmin(r.Service))
	admin.POST("/events", h.CreateEvent)
	admin.PUT("/events/:id", h.UpdateEvent)
	admin.DELETE("/events/:id", h.DeleteEvent)

	admin.GET("/registrations", h.ListRegistrations)
	admin.GET("/registrations/export", h.ExportRegistrations)
	admin.GET("/registrations/:id", h.GetRegistration)
	admin.PATCH("/registrations/:id", h.UpdateRegistration)
	admin.DELETE("/registrations/:id", h.DeleteRegistration)

	admin.GET("/blogs", h.ListAllBlogs)
	admin.GET("/blogs/:id", h.GetBlog)
	admin.POST("/blogs", h.CreateBlog)
	admin.PUT("/blogs/:id", h.UpdateBlog)
	admin.DELETE("/blogs/:id", h.DeleteBlog)

	admin.POST("/images", h.UploadImage)

	return app
}
