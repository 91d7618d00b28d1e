package request

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
)

// UUIDParam parses a path parameter as a UUID.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("Invalid ID format", map[string]string{name: "must be a UUID"})
	}
	return id, nil
}

// OptionalUUIDQuery parses an optional query parameter as a UUID.
func OptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid query parameter", map[string]string{name: "must be a UUID"})
	}
	return &id, nil
}

// OptionalTimeQuery accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
// endOfDay moves a plain date to the last instant of that day.
func OptionalTimeQuery(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}

	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid query parameter", map[string]string{name: "must be YYYY-MM-DD or RFC3339"})
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
