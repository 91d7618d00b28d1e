package course

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const notifyTimeout = 3 * time.Second

// UpdateNotice announces a content change to a course's subscribers.
type UpdateNotice struct {
	CourseID      uuid.UUID  `json:"course_id"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	UpdatedBy     *uuid.UUID `json:"updated_by,omitempty"`
}

// Notifier hands update notices to the background worker.
type Notifier interface {
	CourseUpdated(ctx context.Context, notice UpdateNotice) error
}

// Announce enqueues notice and only logs a failure. The request that caused
// the change has already succeeded.
func Announce(ctx context.Context, notifier Notifier, logger *slog.Logger, notice UpdateNotice) {
	if notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := notifier.CourseUpdated(ctx, notice); err != nil {
		logger.Warn("failed to enqueue course update notification",
			slog.String("course_id", notice.CourseID.String()),
			slog.String("error", err.Error()))
	}
}
