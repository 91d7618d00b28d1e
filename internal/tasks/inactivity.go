package tasks

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/metrics"
)

// InactivityJobName identifies the job in the scheduler and in metrics.
const InactivityJobName = "block_inactive_users"

// DefaultInactivityDays is how long an account may go without logging in.
const DefaultInactivityDays = 30

// BlockInactive deactivates regular accounts whose last login is before
// cutoff, in a single statement. Staff and superusers are never touched, nor
// are accounts that never logged in. Returns the number of accounts blocked.
func BlockInactive(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&user.User{}).
		Where("is_active = ? AND is_staff = ? AND is_superuser = ? AND last_login < ?", true, false, false, cutoff).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// InactivityJob runs BlockInactive on a schedule.
type InactivityJob struct {
	db     *gorm.DB
	days   int
	logger *slog.Logger
	now    func() time.Time
}

// NewInactivityJob creates the job. days <= 0 uses DefaultInactivityDays.
func NewInactivityJob(db *gorm.DB, days int, logger *slog.Logger) *InactivityJob {
	if days <= 0 {
		days = DefaultInactivityDays
	}
	return &InactivityJob{db: db, days: days, logger: logger, now: time.Now}
}

// Name implements jobs.Job.
func (j *InactivityJob) Name() string { return InactivityJobName }

// Execute implements jobs.Job.
func (j *InactivityJob) Execute(ctx context.Context) error {
	_, err := j.Run(ctx)
	return err
}

// Run blocks stale accounts and returns how many were blocked.
func (j *InactivityJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().AddDate(0, 0, -j.days)

	blocked, err := BlockInactive(ctx, j.db, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.AddBlockedUsers(blocked)
	j.logger.Info("inactive users blocked",
		slog.Int64("count", blocked),
		slog.Time("cutoff", cutoff))

	return blocked, nil
}
