package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api/handlers"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api/middleware"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/service"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/user"
)

type RouterConfig struct {
	Users     *user.Store
	JWTSecret string
	JWTExpiry time.Duration
	Svc       *service.AlignService
	Files     *fileserver.Server
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	handlers.InitErrors()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
	}))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(20)))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	config := huma.DefaultConfig("SANA Alignment API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api/v1"}}
	config.Info.Description = "Network alignment job service"
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"BearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "JWT Bearer token",
		},
		"ApiKeyAuth": {
			Type:        "apiKey",
			In:          "header",
			Name:        "X-API-Key",
			Description: "API key",
		},
	}

	api := humaecho.NewWithGroup(e, v1, config)

	authMw := middleware.Auth(cfg.JWTSecret, cfg.Users)
	adminMw := middleware.AdminOnly()
	authed := []map[string][]string{{"BearerAuth": {}}, {"ApiKeyAuth": {}}}

	authHandler := handlers.NewAuthHandler(cfg.Users, cfg.JWTSecret, cfg.JWTExpiry)
	huma.Register(api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Summary:     "Register a new user",
		Tags:        []string{"Auth"},
	}, authHandler.Register)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login and get JWT token",
		Tags:        []string{"Auth"},
	}, authHandler.Login)

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get current user info",
		Tags:        []string{"Auth"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, authHandler.Me)

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-api-key",
		Method:      http.MethodPost,
		Path:        "/auth/apikey/regenerate",
		Summary:     "Regenerate API key",
		Tags:        []string{"Auth"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, authHandler.RegenerateAPIKey)

	jobsHandler := handlers.NewJobsHandler(cfg.Svc, cfg.Files)
	huma.Register(api, huma.Operation{
		OperationID: "jobs-process",
		Method:      http.MethodPost,
		Path:        "/jobs/{id}/process",
		Summary:     "Run the aligner for a submitted job",
		Tags:        []string{"Jobs"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.Process)

	huma.Register(api, huma.Operation{
		OperationID: "jobs-get",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job results",
		Tags:        []string{"Jobs"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.Get)

	huma.Register(api, huma.Operation{
		OperationID: "jobs-list",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List own jobs",
		Tags:        []string{"Jobs"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, jobsHandler.List)

	usersHandler := handlers.NewUsersHandler(cfg.Users)
	huma.Register(api, huma.Operation{
		OperationID: "admin-users-list",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List all users",
		Tags:        []string{"Admin - Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, usersHandler.List)

	// Multipart upload and archive streaming stay on raw echo routes.
	// The archive route authorizes via signed download tokens, so it
	// skips the credential middleware.
	echoAuth := middleware.EchoAuth(cfg.JWTSecret, cfg.Users)
	v1.POST("/jobs", jobsHandler.Submit, echoAuth)
	v1.GET("/jobs/:id/archive", jobsHandler.Archive)
}
