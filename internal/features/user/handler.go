package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/request"
	"github.com/mo-amir99/course-platform-go/pkg/response"
)

// Handler processes user HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a user handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Me returns the caller's own account.
func (h *Handler) Me(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		response.AppError(h.logger, c, access.ErrUnauthorized)
		return
	}

	user, err := Get(c.Request.Context(), h.db, actor.ID)
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return
	}

	response.Success(c, http.StatusOK, user, "", nil)
}

// List returns paginated users in their public projection.
func (h *Handler) List(c *gin.Context) {
	if err := access.CanListAccounts(middleware.ActorFromContext(c)); err != nil {
		h.respondError(c, err, "")
		return
	}

	params := pagination.Extract(c)
	filters := ListFilters{Keyword: c.Query("filterKeyword")}

	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "isActive must be a boolean",
				apperrors.Validation("isActive must be a boolean", map[string]string{"isActive": "invalid boolean"}))
			return
		}
		filters.Active = &active
	}

	users, total, err := List(c.Request.Context(), h.db, filters, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list users", err)
		return
	}

	public := make([]PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	response.Success(c, http.StatusOK, public, "", pagination.MetadataFrom(total, params))
}

// GetByID fetches a single user.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	if err := access.CanViewAccount(middleware.ActorFromContext(c), id); err != nil {
		h.respondError(c, err, "")
		return
	}

	user, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load user")
		return
	}

	response.Success(c, http.StatusOK, user, "", nil)
}

type updateRequest struct {
	Email       *string   `json:"email" binding:"omitempty,email"`
	Password    *string   `json:"password"`
	FirstName   *string   `json:"firstName" binding:"omitempty,max=150"`
	LastName    *string   `json:"lastName" binding:"omitempty,max=150"`
	Phone       *string   `json:"phone" binding:"omitempty,max=20"`
	City        *string   `json:"city" binding:"omitempty,max=100"`
	Avatar      *string   `json:"avatar" binding:"omitempty,url"`
	Active      *bool     `json:"isActive"`
	IsStaff     *bool     `json:"isStaff"`
	IsSuperuser *bool     `json:"isSuperuser"`
	Groups      *[]string `json:"groups"`
}

// Update modifies an existing user. Privilege fields are reserved for admins,
// and only superusers may grant superuser.
func (h *Handler) Update(c *gin.Context) {
	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := access.CanEditAccount(actor, id); err != nil {
		h.respondError(c, err, "")
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusBadRequest, "invalid user payload", err)
		return
	}

	if (req.Active != nil || req.IsStaff != nil || req.Groups != nil) && actor.Role != access.Admin {
		response.AppError(h.logger, c, apperrors.Forbidden("Only admins can change account status or roles"))
		return
	}
	if req.IsSuperuser != nil && !actor.Superuser {
		response.AppError(h.logger, c, apperrors.Forbidden("Only superusers can grant superuser status"))
		return
	}

	// superuser accounts are off limits to staff admins
	if actor.ID != id && !actor.Superuser {
		target, err := Get(c.Request.Context(), h.db, id)
		if err != nil {
			h.respondError(c, err, "failed to update user")
			return
		}
		if err := access.CanEditAccountOf(actor, id, target.IsSuperuser); err != nil {
			h.respondError(c, err, "")
			return
		}
	}

	user, err := Update(c.Request.Context(), h.db, id, UpdateInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		City:        req.City,
		Avatar:      req.Avatar,
		Active:      req.Active,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
		Groups:      req.Groups,
	})
	if err != nil {
		h.respondError(c, err, "failed to update user")
		return
	}

	response.Success(c, http.StatusOK, user, "User updated successfully.", nil)
}

// Delete removes a user. Superusers only, and not their own account.
func (h *Handler) Delete(c *gin.Context) {
	id, err := request.UUIDParam(c, "userId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	if err := access.CanDeleteAccount(middleware.ActorFromContext(c), id); err != nil {
		h.respondError(c, err, "")
		return
	}

	if err := Delete(c.Request.Context(), h.db, id); err != nil {
		h.respondError(c, err, "failed to delete user")
		return
	}

	response.NoContent(c)
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.AppError(h.logger, c, appErr)
		return
	}

	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, ErrUserNotFound):
		status = http.StatusNotFound
		message = "User not found."
	case errors.Is(err, ErrEmailTaken):
		status = http.StatusConflict
		message = "Email already exists."
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrEmptyEmail):
		status = http.StatusBadRequest
		message = err.Error()
	}

	response.ErrorWithLog(h.logger, c, status, message, err)
}
