package payment

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mo-amir99/course-platform-go/internal/access"
	"github.com/mo-amir99/course-platform-go/internal/middleware"
	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/request"
	"github.com/mo-amir99/course-platform-go/pkg/response"
	"github.com/mo-amir99/course-platform-go/pkg/types"
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

// Handler processes payment HTTP requests.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a payment handler instance.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateResponse is returned when a checkout is opened.
type CreateResponse struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	PaymentLink string              `json:"payment_link"`
	Status      types.PaymentStatus `json:"status"`
}

// StatusResponse is returned after polling the processor.
type StatusResponse struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	Status    types.PaymentStatus `json:"status"`
	Amount    types.Money         `json:"amount"`
	Course    *string             `json:"course"`
}

// Create opens a checkout session for a course.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req struct {
		CourseID uuid.UUID `json:"course_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AppError(h.logger, c, apperrors.Validation("invalid payment payload", validation.Fields(err)))
		return
	}

	p, err := h.service.Initiate(c.Request.Context(), actor.ID, req.CourseID)
	if err != nil {
		h.respondError(c, err, "failed to create payment")
		return
	}

	link := ""
	if p.PaymentLink != nil {
		link = *p.PaymentLink
	}

	response.Created(c, CreateResponse{PaymentID: p.ID, PaymentLink: link, Status: p.Status}, "")
}

// Status refreshes and returns one of the caller's payments.
func (h *Handler) Status(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	id, err := request.UUIDParam(c, "paymentId")
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	result, err := h.service.Poll(c.Request.Context(), actor.ID, id)
	if err != nil {
		h.respondError(c, err, "failed to check payment status")
		return
	}

	response.SuccessNoCache(c, http.StatusOK, StatusResponse{
		PaymentID: result.Payment.ID,
		Status:    result.Payment.Status,
		Amount:    result.Payment.Amount,
		Course:    result.CourseTitle,
	}, "")
}

// List returns the caller's payments, newest first unless sorted otherwise.
func (h *Handler) List(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	params := pagination.Extract(c)
	filters := ListFilters{
		UserID:        actor.ID,
		PaymentMethod: types.PaymentMethod(c.Query("paymentMethod")),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.Query("sortOrder"),
	}

	var err error
	if filters.CourseID, err = request.OptionalUUIDQuery(c, "course"); err != nil {
		h.respondError(c, err, "")
		return
	}
	if filters.LessonID, err = request.OptionalUUIDQuery(c, "lesson"); err != nil {
		h.respondError(c, err, "")
		return
	}
	if filters.DateFrom, err = request.OptionalTimeQuery(c, "dateFrom", false); err != nil {
		h.respondError(c, err, "")
		return
	}
	if filters.DateTo, err = request.OptionalTimeQuery(c, "dateTo", true); err != nil {
		h.respondError(c, err, "")
		return
	}

	payments, total, err := h.service.List(c.Request.Context(), filters, params)
	if err != nil {
		h.respondError(c, err, "failed to list payments")
		return
	}
	if payments == nil {
		payments = []Payment{}
	}

	response.Success(c, http.StatusOK, payments, "", pagination.MetadataFrom(total, params))
}

// Success is the processor's redirect target after a completed checkout.
func (h *Handler) Success(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "success"},
		"Payment completed. Check the payment status to confirm enrollment.", nil)
}

// Cancel is the processor's redirect target after an abandoned checkout.
func (h *Handler) Cancel(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "canceled"},
		"Payment was canceled. You can start a new checkout at any time.", nil)
}

func (h *Handler) requireActor(c *gin.Context) (access.Actor, bool) {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		response.AppError(h.logger, c, access.ErrUnauthorized)
		return actor, false
	}
	return actor, true
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		response.AppError(h.logger, c, appErr)
	case errors.Is(err, ErrPaymentNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Payment not found.", err)
	case errors.Is(err, ErrCourseNotFound):
		response.ErrorWithLog(h.logger, c, http.StatusNotFound, "Course not found.", err)
	case errors.Is(err, ErrNoSession):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"payment": err.Error()}))
	case errors.Is(err, ErrInvalidSort):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"sortBy": err.Error()}))
	case errors.Is(err, ErrInvalidOrder):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"sortOrder": err.Error()}))
	case errors.Is(err, ErrInvalidMethod):
		response.AppError(h.logger, c, apperrors.Validation(err.Error(), map[string]string{"paymentMethod": err.Error()}))
	default:
		response.ErrorWithLog(h.logger, c, http.StatusInternalServerError, fallback, err)
	}
}
