package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/amruno/internal/auth"
	"github.com/nfrund/amruno/internal/domain"
	"github.com/nfrund/amruno/internal/middleware"
)

// TokenIssuer creates access tokens for a mobile number.
type TokenIssuer interface {
	Issue(mobile string) (string, error)
}

// AuthHandler handles registration, login and user lookups.
type AuthHandler struct {
	userStore domain.UserRepository
	tokens    TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userStore domain.UserRepository, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		userStore: userStore,
		tokens:    tokens,
	}
}

// Register creates an account (POST /register).
func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user, err := h.userStore.Create(ctx, &domain.User{
		FullName:       req.FullName,
		MobileNumber:   req.MobileNumber,
		HashedPassword: hash,
		Gender:         req.Gender,
	})
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		return echo.NewHTTPError(http.StatusBadRequest, "Mobile number already registered")
	}
	if err != nil {
		return err
	}

	logger.Info("User registered", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}

// Login exchanges credentials for an access token (POST /login).
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format.")
	}
	if req.MobileNumber == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing mobile number or password")
	}

	user, err := h.userStore.FindByMobile(ctx, req.MobileNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if user == nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		middleware.FromContext(ctx).Info("Failed login attempt", "mobile_number", req.MobileNumber)
		return echo.NewHTTPError(http.StatusBadRequest, "Incorrect mobile number or password")
	}

	token, err := h.tokens.Issue(user.MobileNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserMobile:  user.MobileNumber,
	})
}

// Me returns the authenticated user (GET /users/me).
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Users lists every user except the caller (GET /users).
func (h *AuthHandler) Users(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	users, err := h.userStore.ListExcept(c.Request().Context(), user.MobileNumber)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, users)
}
