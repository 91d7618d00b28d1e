package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      interface{} `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code   apperrors.ErrorCode `json:"code"`
	Fields map[string]string   `json:"fields,omitempty"`
}

// Success writes a success response with optional message and data.
func Success(c *gin.Context, status int, data interface{}, message string, pagination interface{}) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: pagination,
	})
}

// Created is a convenience helper for POST 201 responses.
func Created(c *gin.Context, data interface{}, message string) {
	Success(c, http.StatusCreated, data, message, nil)
}

// NoContent writes a bare 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error response. Only AppErrors expose their code and fields;
// anything else is reported as an internal error.
func Error(c *gin.Context, status int, message string, err error) {
	body := ErrorBody{Code: apperrors.ErrInternal}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code()
		body.Fields = appErr.Fields()
	} else if status < http.StatusInternalServerError {
		body.Code = codeForStatus(status)
	}

	c.JSON(status, Envelope{
		Success: false,
		Message: message,
		Error:   body,
	})
}

// ErrorWithLog writes an error response and logs the error via slog.
// Client errors are logged at warn, server errors at error.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if logger != nil && err != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, message,
			slog.Int("status", status),
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	Error(c, status, message, err)
}

// AppError writes err using its own status and message.
func AppError(logger *slog.Logger, c *gin.Context, err *apperrors.AppError) {
	ErrorWithLog(logger, c, err.StatusCode(), err.Message(), err)
}

func codeForStatus(status int) apperrors.ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrValidation
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusTooManyRequests:
		return apperrors.ErrTooMany
	default:
		return apperrors.ErrInternal
	}
}
