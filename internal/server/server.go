package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/newslens-hq/newslens-backend/internal/auth"
	"github.com/newslens-hq/newslens-backend/internal/chat"
	"github.com/newslens-hq/newslens-backend/internal/headline"
	"github.com/newslens-hq/newslens-backend/internal/logger"
	"github.com/newslens-hq/newslens-backend/internal/pipeline"
	"github.com/newslens-hq/newslens-backend/internal/ranker"
	"github.com/newslens-hq/newslens-backend/internal/store"
	"github.com/newslens-hq/newslens-backend/pkg/publishers"
)

// Deps bundles everything the HTTP layer needs. Store, Issuer and
// Publishers are optional; routes depending on a missing piece report
// it instead of panicking.
type Deps struct {
	Log          logger.Logger
	Ranker       *ranker.Ranker
	Aggregator   *pipeline.Aggregator
	Personalizer *headline.Personalizer
	Chat         *chat.Service
	Store        store.Store
	Issuer       *auth.TokenIssuer
	Publishers   []publishers.Publisher

	DefaultResults int
}

// Handler carries the wired dependencies across requests.
type Handler struct {
	deps Deps
}

// New builds the echo instance with all routes registered.
func New(deps Deps) *echo.Echo {
	if deps.Log == nil {
		deps.Log = logger.NopLogger{}
	}
	if deps.DefaultResults <= 0 {
		deps.DefaultResults = 5
	}

	h := &Handler{deps: deps}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))

	e.GET("/health", h.Health)

	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)

	e.POST("/recommend-interests", h.RecommendInterests)
	e.POST("/personalized-news", h.PersonalizedNews)
	e.POST("/generate-notifications", h.GenerateNotifications)
	e.POST("/personalize-headline", h.PersonalizeHeadline)

	e.POST("/chat", h.Chat)
	e.POST("/chat/reset", h.ResetChat)

	read := e.Group("/articles", h.requireAuth)
	read.POST("/read", h.MarkRead)
	read.GET("/read", h.ListRead)

	return e
}

// requireAuth verifies the bearer token and stashes the user id in the
// request context.
func (h *Handler) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.deps.Issuer == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		userID, err := h.deps.Issuer.Verify(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

const userIDKey = "user_id"

// authenticatedUser returns the user id set by requireAuth, or the one
// carried by an optional bearer token on public routes.
func (h *Handler) authenticatedUser(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(string); ok && id != "" {
		return id
	}
	if h.deps.Issuer == nil {
		return ""
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return ""
	}

	userID, err := h.deps.Issuer.Verify(token)
	if err != nil {
		return ""
	}
	return userID
}
