package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/response"
)

// Mailer sends plain notification emails.
type Mailer interface {
	SendNotification(to, subject, body string) error
}

// Handler processes authentication HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	tokens TokenConfig
	mailer Mailer
	now    func() time.Time
}

// NewHandler constructs an auth handler instance. mailer may be nil.
func NewHandler(db *gorm.DB, logger *slog.Logger, cfg config.AuthConfig, mailer Mailer) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		tokens: TokenConfig{
			JWTSecret:          cfg.JWTSecret,
			JWTRefreshSecret:   cfg.JWTRefreshSecret,
			AccessTokenExpiry:  cfg.AccessTokenExpiry,
			RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		},
		mailer: mailer,
		now:    time.Now,
	}
}

// Register creates a new account. Open to anonymous callers.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email     string  `json:"email" binding:"required,email"`
		Password  string  `json:"password" binding:"required"`
		FirstName string  `json:"firstName" binding:"max=150"`
		LastName  string  `json:"lastName" binding:"max=150"`
		Phone     *string `json:"phone" binding:"omitempty,max=20"`
		City      *string `json:"city" binding:"omitempty,max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid registration payload", err)
		return
	}

	authResp, err := Register(c.Request.Context(), h.db, RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
	}, h.tokens)
	if err != nil {
		h.respondError(c, err, "registration failed")
		return
	}

	if h.mailer != nil {
		to := authResp.User.Email
		go func() {
			body := fmt.Sprintf("Hello %s,\nYour account is ready.", greeting(*authResp.User))
			if err := h.mailer.SendNotification(to, "Welcome", body); err != nil {
				h.logger.Error("failed to send welcome email",
					slog.String("email", to),
					slog.String("error", err.Error()))
			}
		}()
	}

	response.Created(c, authResp, "Registration successful")
}

// Login authenticates a user and returns JWT tokens.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid login payload", err)
		return
	}

	authResp, err := Login(c.Request.Context(), h.db, LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, h.tokens, h.now())
	if err != nil {
		h.respondError(c, err, "login failed")
		return
	}

	response.Success(c, http.StatusOK, authResp, "Login successful", nil)
}

// RefreshToken issues a new token pair from a refresh token.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "refresh token is required", err)
		return
	}

	tokens, err := RefreshAccessToken(c.Request.Context(), h.db, req.RefreshToken, h.tokens)
	if err != nil {
		h.respondError(c, err, "token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, tokens, "", nil)
}

func greeting(u user.User) string {
	if name := u.DisplayName(); name != "" {
		return name
	}
	return u.Email
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidTokenType):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, ErrInactiveAccount):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, ErrWeakPassword), errors.Is(err, user.ErrInvalidPassword):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, user.ErrEmailTaken):
		status = http.StatusConflict
		message = "Email already exists."
	}

	response.ErrorWithLog(h.logger, c, status, message, err)
}
