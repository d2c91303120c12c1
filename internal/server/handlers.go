package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/newslens-hq/newslens-backend/internal/auth"
	"github.com/newslens-hq/newslens-backend/internal/domain"
	"github.com/newslens-hq/newslens-backend/internal/store"
	"github.com/newslens-hq/newslens-backend/pkg/publishers"
)

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type registerRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Age       int      `json:"age"`
	Goals     string   `json:"goals"`
	Interests []string `json:"interests"`
	K         int      `json:"k"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Register creates an account and returns a fresh token.
func (h *Handler) Register(c echo.Context) error {
	if h.deps.Store == nil || h.deps.Issuer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "accounts are not configured")
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if req.K <= 0 {
		req.K = 3
	}

	if _, err := h.deps.Store.UserByEmail(c.Request().Context(), req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusBadGateway, "profile store unavailable")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	user, err := h.deps.Store.CreateUser(c.Request().Context(), domain.User{
		Email:          req.Email,
		HashedPassword: hash,
		Age:            req.Age,
		Goals:          req.Goals,
		Interests:      req.Interests,
		K:              req.K,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not create user")
	}

	token, err := h.deps.Issuer.Issue(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}

	return c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a fresh token.
func (h *Handler) Login(c echo.Context) error {
	if h.deps.Store == nil || h.deps.Issuer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "accounts are not configured")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.deps.Store.UserByEmail(c.Request().Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if err := h.deps.Store.TouchLastLogin(c.Request().Context(), user.ID); err != nil {
		h.deps.Log.WarnObj("last login update failed", "login_touch_error", map[string]any{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	token, err := h.deps.Issuer.Issue(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func bindProfile(c echo.Context) (domain.Profile, error) {
	var profile domain.Profile
	if err := c.Bind(&profile); err != nil {
		return domain.Profile{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(profile.Interests) == 0 {
		return domain.Profile{}, echo.NewHTTPError(http.StatusBadRequest, "interests are required")
	}
	if profile.K <= 0 {
		profile.K = 3
	}
	if profile.K > 10 {
		profile.K = 10
	}
	return profile, nil
}

type interestResponse struct {
	RecommendedInterests []string `json:"recommended_interests"`
}

// RecommendInterests ranks the profile's interests.
func (h *Handler) RecommendInterests(c echo.Context) error {
	profile, err := bindProfile(c)
	if err != nil {
		return err
	}

	interests, err := h.deps.Ranker.Rank(c.Request().Context(), profile)
	if err != nil {
		h.deps.Log.ErrorObj("interest ranking failed", "rank_error", map[string]any{"error": err.Error()})
		return echo.NewHTTPError(http.StatusBadGateway, "interest ranking failed")
	}

	return c.JSON(http.StatusOK, interestResponse{RecommendedInterests: interests})
}

type personalizedNewsResponse struct {
	RecommendedInterests []string                    `json:"recommended_interests"`
	NewsByInterest       map[string][]domain.Article `json:"news_by_interest"`
}

// PersonalizedNews ranks interests, aggregates news per interest and
// rewrites every headline for personal impact. Articles the
// authenticated user already read are filtered out.
func (h *Handler) PersonalizedNews(c echo.Context) error {
	profile, err := bindProfile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	interests, err := h.deps.Ranker.Rank(ctx, profile)
	if err != nil {
		h.deps.Log.ErrorObj("interest ranking failed", "rank_error", map[string]any{"error": err.Error()})
		return echo.NewHTTPError(http.StatusBadGateway, "interest ranking failed")
	}

	news := h.deps.Aggregator.FanOut(ctx, interests, h.deps.DefaultResults)
	news = h.filterRead(c, news)
	news = h.deps.Personalizer.PersonalizeAll(ctx, profile, news)

	return c.JSON(http.StatusOK, personalizedNewsResponse{
		RecommendedInterests: interests,
		NewsByInterest:       news,
	})
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// GenerateNotifications builds personalized push notifications and
// mirrors them to every configured publisher.
func (h *Handler) GenerateNotifications(c echo.Context) error {
	profile, err := bindProfile(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	interests, err := h.deps.Ranker.Rank(ctx, profile)
	if err != nil {
		h.deps.Log.ErrorObj("interest ranking failed", "rank_error", map[string]any{"error": err.Error()})
		return echo.NewHTTPError(http.StatusBadGateway, "interest ranking failed")
	}

	news := h.deps.Aggregator.FanOut(ctx, interests, 3)
	notifications := h.deps.Personalizer.Notifications(ctx, profile, news)

	publishers.Dispatch(ctx, h.deps.Publishers, h.deps.Log, h.authenticatedUser(c), notifications)

	return c.JSON(http.StatusOK, notificationsResponse{Notifications: notifications})
}

type personalizeHeadlineRequest struct {
	Article domain.Article `json:"article"`
	Profile domain.Profile `json:"user_profile"`
}

type personalizeHeadlineResponse struct {
	PersonalizedHeadline string `json:"personalized_headline"`
	OriginalHeadline     string `json:"original_headline"`
}

// PersonalizeHeadline rewrites one article's headline.
func (h *Handler) PersonalizeHeadline(c echo.Context) error {
	var req personalizeHeadlineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	article := h.deps.Personalizer.Personalize(c.Request().Context(), req.Profile, "", req.Article)

	return c.JSON(http.StatusOK, personalizeHeadlineResponse{
		PersonalizedHeadline: article.Title,
		OriginalHeadline:     req.Article.Title,
	})
}

type chatRequest struct {
	Message     string           `json:"message"`
	NewsContext []domain.Article `json:"news_context"`
	UserProfile *domain.Profile  `json:"user_profile"`
}

// Chat answers a message in the context of the displayed articles.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	resp, err := h.deps.Chat.Chat(c.Request().Context(), req.Message, req.NewsContext, req.UserProfile)
	if err != nil {
		h.deps.Log.ErrorObj("chat generation failed", "chat_error", map[string]any{"error": err.Error()})
		return echo.NewHTTPError(http.StatusBadGateway, "chat generation failed")
	}

	return c.JSON(http.StatusOK, resp)
}

// ResetChat clears the conversation state.
func (h *Handler) ResetChat(c echo.Context) error {
	h.deps.Chat.Reset()
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Chat conversation reset",
	})
}

type markReadRequest struct {
	URL string `json:"url"`
}

// MarkRead records one article URL as read for the caller.
func (h *Handler) MarkRead(c echo.Context) error {
	if h.deps.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "read state is not configured")
	}

	var req markReadRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	userID, _ := c.Get(userIDKey).(string)
	if err := h.deps.Store.MarkRead(c.Request().Context(), userID, req.URL); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not mark article read")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// ListRead returns the caller's read article URLs.
func (h *Handler) ListRead(c echo.Context) error {
	if h.deps.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "read state is not configured")
	}

	userID, _ := c.Get(userIDKey).(string)
	urls, err := h.deps.Store.ReadURLs(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "could not list read articles")
	}
	if urls == nil {
		urls = []string{}
	}

	return c.JSON(http.StatusOK, map[string][]string{"read_urls": urls})
}

// filterRead drops already-read articles when the request carries a
// valid token and the store is available. Failures degrade to the
// unfiltered list.
func (h *Handler) filterRead(c echo.Context, news map[string][]domain.Article) map[string][]domain.Article {
	userID := h.authenticatedUser(c)
	if userID == "" || h.deps.Store == nil {
		return news
	}

	readURLs, err := h.deps.Store.ReadURLs(c.Request().Context(), userID)
	if err != nil || len(readURLs) == 0 {
		return news
	}

	out := make(map[string][]domain.Article, len(news))
	for interest, articles := range news {
		out[interest] = store.FilterUnread(articles, readURLs)
	}
	return out
}
