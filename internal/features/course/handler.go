package course

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/request"
	"github.com/mo-amir99/course-platform-go/pkg/response"
	"github.com/mo-amir99/course-platform-go/pkg/types"
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

// Handler processes course HTTP requests.
type Handler struct {
	db       *gorm.DB
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time
}

// NewHandler constructs a course handler instance. notifier may be nil.
func NewHandler(db *gorm.DB, logger *slog.Logger, notifier Notifier) *Handler {
	return &Handler{db: db, logger: logger, notifier: notifier, now: time.Now}
}

type courseDetail struct {
	Course
	Lessons      []lessonSummary `json:"lessons"`
	LessonsCount int             `json:"lessonsCount"`
	IsSubscribed bool            `json:"isSubscribed"`
}

type lessonSummary struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"courseId"`
	Title    string    `json:"title"`
}

func (lessonSummary) TableName() string {
	return "lessons"
}

// List returns paginated courses. Public.
func (h *Handler) List(c *gin.Context) {
	params := pagination.Extract(c)

	ownerID, err := request.OptionalUUIDQuery(c, "owner")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	courses, total, err := List(c.Request.Context(), h.db, ListFilters{
		Keyword: c.Query("filterKeyword"),
		OwnerID: ownerID,
	}, params)
	if err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to list courses", err)
		return
	}

	response.Success(c, http.StatusOK, courses, "", pagination.MetadataFrom(total, params))
}

// GetByID returns a course with its lessons and, for a signed-in caller,
// whether they are subscribed.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	course, err := Get(ctx, h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	detail := courseDetail{Course: course, Lessons: []lessonSummary{}}
	if err := h.db.WithContext(ctx).
		Select("id", "course_id", "title").
		Where("course_id = ?", id).
		Order("created_at ASC").
		Find(&detail.Lessons).Error; err != nil {
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to load lessons", err)
		return
	}
	detail.LessonsCount = len(detail.Lessons)

	if actor := middleware.ActorFromContext(c); actor.Authenticated() {
		var n int64
		if err := h.db.WithContext(ctx).Table("subscriptions").
			Where("user_id = ? AND course_id = ?", actor.ID, id).
			Count(&n).Error; err != nil {
			response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, "failed to load subscription", err)
			return
		}
		detail.IsSubscribed = n > 0
	}

	response.Success(c, http.StatusOK, detail, "", nil)
}

type createRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Preview     *string      `json:"preview" binding:"omitempty,max=500"`
	Price       *types.Money `json:"price"`
}

// Create inserts a new course owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	if err := access.Decide(actor, access.Create, access.Resource{}); err != nil {
		h.respondError(c, err, "")
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("invalid course payload", validation.Fields(err)))
		return
	}

	course, err := Create(c.Request.Context(), h.db, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Preview:     req.Preview,
		Price:       req.Price,
		OwnerID:     &actor.ID,
	})
	if err != nil {
		h.respondError(c, err, "failed to create course")
		return
	}

	response.Created(c, course, "")
}

type updateRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Preview     *string      `json:"preview" binding:"omitempty,max=500"`
	Price       *types.Money `json:"price"`
}

// Update modifies a course and announces the change to subscribers.
func (h *Handler) Update(c *gin.Context) {
	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	existing, err := Get(ctx, h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	actor := middleware.ActorFromContext(c)
	if err := access.Decide(actor, access.Update, access.Resource{OwnerID: existing.OwnerID}); err != nil {
		h.respondError(c, err, "")
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("invalid course payload", validation.Fields(err)))
		return
	}

	course, changed, err := Update(ctx, h.db, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Preview:     req.Preview,
		Price:       req.Price,
	}, h.now())
	if err != nil {
		h.respondError(c, err, "failed to update course")
		return
	}

	if len(changed) > 0 {
		Announce(ctx, h.notifier, h.logger, UpdateNotice{
			CourseID:      course.ID,
			ChangedFields: changed,
			UpdatedBy:     &actor.ID,
		})
	}

	response.Success(c, http.StatusOK, course, "", nil)
}

// Delete removes a course.
func (h *Handler) Delete(c *gin.Context) {
	id, err := request.UUIDParam(c, "courseId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	ctx := c.Request.Context()
	existing, err := Get(ctx, h.db, id)
	if err != nil {
		h.respondError(c, err, "failed to load course")
		return
	}

	if err := access.Decide(middleware.ActorFromContext(c), access.Delete, access.Resource{OwnerID: existing.OwnerID}); err != nil {
		h.respondError(c, err, "")
		return
	}

	if err := Delete(ctx, h.db, id); err != nil {
		h.respondError(c, err, "failed to delete course")
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

	switch {
	case errors.Is(err, ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrTitleTooLong):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"title": err.Error()}))
	case errors.Is(err, ErrNegativePrice):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"price": err.Error()}))
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
