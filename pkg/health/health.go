package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Version information, set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Handler handles health check endpoints.
type Handler struct {
	checks map[string]Checker
	logger *slog.Logger
}

// NewHandler creates a handler; add dependencies with WithCheck.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		checks: make(map[string]Checker),
		logger: logger,
	}
}

// WithCheck registers a named readiness check.
func (h *Handler) WithCheck(name string, check Checker) *Handler {
	h.checks[name] = check
	return h
}

// DatabaseCheck pings the pool behind db.
func DatabaseCheck(db *gorm.DB) Checker {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Response is the health check payload.
type Response struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Commit    string            `json:"commit,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health is a liveness probe that always returns OK.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
		Commit:    GitCommit,
	})
}

// Ready runs every registered check with a shared two second budget.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ready"
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Error("readiness check failed", slog.String("check", name), slog.String("error", err.Error()))
			results[name] = "unhealthy"
			status = "not_ready"
			continue
		}
		results[name] = "ok"
	}

	code := http.StatusOK
	if status != "ready" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Status:    status,
		Timestamp: time.Now(),
		Version:   Version,
		Checks:    results,
	})
}
