package lesson

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

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
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

// changedField is what subscribers are told changed when lessons move.
const changedField = "lessons"

// Handler processes lesson HTTP requests.
type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	notifier course.Notifier
	now      func() time.Time
}

// NewHandler constructs a lesson handler instance. notifier may be nil.
func NewHandler(db *gorm.DB, logger *slog.Logger, notifier course.Notifier) *Handler {
	return &Handler{db: db, logger: logger, notifier: notifier, now: time.Now}
}

// List returns paginated lessons, optionally for one course.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)

	courseID, err := request.OptionalUUIDQuery(c, "course")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	lessons, total, err := List(c.Request.Context(), h.db, ListFilters{
		CourseID: courseID,
		Keyword:  c.Query("filterKeyword"),
	}, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list lessons", err)
		return
	}

	response.Success(c, http.StatusOK, lessons, "", pagination.MetadataFrom(total, params))
}

// GetByID fetches a single lesson.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "lessonId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	lesson, err := Get(c.Request.Context(), h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load lesson")
		return
	}

	response.Success(c, http.StatusOK, lesson, "", nil)
}

type createRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Preview     *string   `json:"preview" binding:"omitempty,max=500"`
	VideoLink   *string   `json:"video_link" binding:"omitempty,youtube"`
	CourseID    uuid.UUID `json:"course" binding:"required"`
}

// Create adds a lesson owned by the caller and announces it to the course's subscribers.
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := access.Decide(actor, access.Create, access.Resource{}); err != nil {
		h.respondError(c, err, "")
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("invalid lesson payload", validation.Fields(err)))
		return
	}

	ctx := c.Request.Context()
	lesson, err := Create(ctx, h.db, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Preview:     req.Preview,
		VideoLink:   req.VideoLink,
		CourseID:    req.CourseID,
		OwnerID:     &actor.ID,
	})
	if err != nil {
		h.respondError(c, err, "failed to create lesson")
		return
	}

	h.announce(ctx, lesson.CourseID, actor.ID)
	response.Created(c, lesson, "")
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Preview     *string `json:"preview" binding:"omitempty,max=500"`
	VideoLink   *string `json:"video_link" binding:"omitempty,youtube"`
}

// Update modifies a lesson and announces the change.
func (h *Handler) Update(c *gin.Context) {
	id, err := request.UUIDParam(c, "lessonId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	existing, err := Get(ctx, h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load lesson")
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := access.Decide(actor, access.Update, access.Resource{OwnerID: existing.OwnerID}); err != nil {
		h.respondError(c, err, "")
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("invalid lesson payload", validation.Fields(err)))
		return
	}

	lesson, changed, err := Update(ctx, h.db, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Preview:     req.Preview,
		VideoLink:   req.VideoLink,
	})
	if err != nil {
		h.respondError(c, err, "failed to update lesson")
		return
	}

	if changed {
		h.announce(ctx, lesson.CourseID, actor.ID)
	}
	response.Success(c, http.StatusOK, lesson, "", nil)
}

// Delete removes a lesson.
func (h *Handler) Delete(c *gin.Context) {
	id, err := request.UUIDParam(c, "lessonId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	existing, err := Get(ctx, h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load lesson")
		return
	}

	if err := access.Decide(middleware.ActorFromContext(c), access.Delete, access.Resource{OwnerID: existing.OwnerID}); err != nil {
		h.respondError(c, err, "")
		return
	}

	if err := Delete(ctx, h.db, id); err != nil {
		h.respondError(c, err, "failed to delete lesson")
		return
	}

	response.NoContent(c)
}

func (h *Handler) announce(ctx context.Context, courseID, actorID uuid.UUID) {
	if err := course.Touch(ctx, h.db, courseID, h.now()); err != nil {
		h.logger.Warn("failed to stamp course update",
			slog.String("course_id", courseID.String()),
			slog.String("error", err.Error()))
	}
	course.Announce(ctx, h.notifier, h.logger, course.UpdateNotice{
		CourseID:      courseID,
		ChangedFields: []string{changedField},
		UpdatedBy:     &actorID,
	})
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.AppError(h.logger, c, appErr)
		return
	}

	switch {
	case errors.Is(err, ErrLessonNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Lesson not found.", err)
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleTooLong):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"title": err.Error()}))
	case errors.Is(err, validation.ErrForeignVideoHost):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"video_link": err.Error()}))
	case errors.Is(err, ErrUnknownCourse):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"course": err.Error()}))
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
