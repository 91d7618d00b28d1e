package subscription

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/request"
	"github.com/mo-amir99/course-platform-go/pkg/response"
)

const (
	messageSubscribed   = "Subscription added"
	messageUnsubscribed = "Subscription removed"
)

// Handler processes subscription HTTP requests.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a subscription handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// StatusResponse is returned by toggle and status requests.
type StatusResponse struct {
	CourseID     uuid.UUID `json:"course_id"`
	CourseTitle  string    `json:"course_title"`
	IsSubscribed bool      `json:"is_subscribed"`
	Message      string    `json:"message"`
}

// ListResponse wraps the caller's subscribed courses.
type ListResponse struct {
	Count   int64           `json:"count"`
	Results []course.Course `json:"results"`
}

// Toggle subscribes or unsubscribes the caller.
func (h *Handler) Toggle(c *gin.Context) {
	actor, courseID, ok := h.target(c)
	if !ok {
		return
	}

	result, err := Toggle(c.Request.Context(), h.db, actor.ID, courseID)
	if err != nil {
		h.respondError(c, err, "failed to toggle subscription")
		return
	}

	message := messageUnsubscribed
	if result.Subscribed {
		message = messageSubscribed
	}

	response.Success(c, http.StatusOK, StatusResponse{
		CourseID:     result.CourseID,
		CourseTitle:  result.CourseTitle,
		IsSubscribed: result.Subscribed,
		Message:      message,
	}, message, nil)
}

// Status reports whether the caller follows the course.
func (h *Handler) Status(c *gin.Context) {
	actor, courseID, ok := h.target(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	target, err := course.Get(ctx, h.db, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	subscribed, err := Status(ctx, h.db, actor.ID, courseID)
	if err != nil {
		h.respondError(c, err, "failed to load subscription")
		return
	}

	message := "Not subscribed"
	if subscribed {
		message = "Subscribed"
	}

	response.Success(c, http.StatusOK, StatusResponse{
		CourseID:     target.ID,
		CourseTitle:  target.Title,
		IsSubscribed: subscribed,
		Message:      message,
	}, "", nil)
}

// ListMine returns the courses the caller follows.
func (h *Handler) ListMine(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		response.AppError(h.logger, c, access.ErrUnauthorized)
		return
	}

	params := pagination.Extract(c)
	courses, total, err := ListCourses(c.Request.Context(), h.db, actor.ID, params)
	if err != nil {
		h.respondError(c, err, "failed to list subscriptions")
		return
	}
	if courses == nil {
		courses = []course.Course{}
	}

	response.Success(c, http.StatusOK, ListResponse{Count: total, Results: courses}, "", pagination.MetadataFrom(total, params))
}

func (h *Handler) target(c *gin.Context) (access.Actor, uuid.UUID, bool) {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		response.AppError(h.logger, c, access.ErrUnauthorized)
		return actor, uuid.Nil, false
	}

	courseID, err := request.UUIDParam(c, "courseId")
	if err != nil {
		h.respondError(c, err, "")
		return actor, uuid.Nil, false
	}

	return actor, courseID, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		response.AppError(h.logger, c, appErr)
	case errors.Is(err, ErrCourseNotFound), errors.Is(err, course.ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
