package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/masterhub/internal/marketplace"
	"github.com/sudo-init-do/masterhub/internal/user"
	"github.com/sudo-init-do/masterhub/internal/utils"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=customer master"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by signup and login
type TokenResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type Handler struct {
	users           user.Store
	tokens          *utils.TokenManager
	log             *zap.Logger
	bootstrapSecret string
}

func NewHandler(users user.Store, tokens *utils.TokenManager, bootstrapSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, tokens: tokens, log: logger, bootstrapSecret: bootstrapSecret}
}

// Register mounts the public auth routes on pub (rate limited by the caller)
// and /auth/me on api.
func (h *Handler) Register(pub, api *echo.Group) {
	pub.POST("/signup", h.Signup)
	pub.POST("/login", h.Login)
	pub.POST("/bootstrap-admin", h.BootstrapAdmin)
	api.GET("/auth/me", h.Me)
}

func (h *Handler) issue(c echo.Context, status int, u *user.User) error {
	signed, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		h.log.Error("token generation failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(status, TokenResponse{Token: signed, User: u})
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	role := req.Role
	if role == "" {
		role = marketplace.RoleCustomer
	}
	now := time.Now().UTC()
	u := &user.User{
		ID:              uuid.NewString(),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Name:            strings.TrimSpace(req.Name),
		Role:            role,
		PasswordHash:    string(hashed),
		Specializations: []string{},
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p := strings.TrimSpace(req.Phone); p != "" {
		u.Phone = &p
	}

	if err := h.users.Create(c.Request().Context(), u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		h.log.Error("signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create account"})
	}
	h.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return h.issue(c, http.StatusCreated, u)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, user.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		h.log.Error("login lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
	}
	return h.issue(c, http.StatusOK, u)
}

// Me returns the currently authenticated user's profile
func (h *Handler) Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.users.GetByID(c.Request().Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		h.log.Error("me lookup failed", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, u)
}
