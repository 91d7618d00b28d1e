package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/pkg/metrics"
	"github.com/mo-amir99/course-platform-go/pkg/queue"
)

// Notification outcomes.
const (
	StatusNotFound      = "not_found"
	StatusNoSubscribers = "no_subscribers"
	StatusSuccess       = "success"
)

// ErrCourseMissing is returned by a NotificationStore when the course is gone.
var ErrCourseMissing = errors.New("course not found")

// Recipient is one subscriber to notify.
type Recipient struct {
	UserID uuid.UUID
	Email  string
}

// NotificationStore reads what a course update email needs.
type NotificationStore interface {
	CourseTitle(ctx context.Context, courseID uuid.UUID) (string, error)
	Subscribers(ctx context.Context, courseID uuid.UUID) ([]Recipient, error)
	// UpdaterName returns "" when the user cannot be resolved.
	UpdaterName(ctx context.Context, userID uuid.UUID) (string, error)
}

// Mailer delivers one plain notification.
type Mailer interface {
	SendNotification(to, subject, body string) error
}

// Outcome summarises one notification run.
type Outcome struct {
	Status              string    `json:"status"`
	CourseID            uuid.UUID `json:"course_id"`
	SubscribersNotified int       `json:"subscribers_notified"`
	Failed              int       `json:"failed"`
}

// CourseUpdateJob emails every subscriber of an updated course.
type CourseUpdateJob struct {
	store     NotificationStore
	mailer    Mailer
	publicURL string
	logger    *slog.Logger
}

// NewCourseUpdateJob creates the job. publicURL prefixes course links.
func NewCourseUpdateJob(store NotificationStore, mailer Mailer, publicURL string, logger *slog.Logger) *CourseUpdateJob {
	return &CourseUpdateJob{
		store:     store,
		mailer:    mailer,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Run notifies the subscribers of notice.CourseID. Only store failures, which
// happen before any mail is sent, are returned as errors; a failed send is
// counted and the loop moves on.
func (j *CourseUpdateJob) Run(ctx context.Context, notice course.UpdateNotice) (Outcome, error) {
	outcome := Outcome{CourseID: notice.CourseID}

	title, err := j.store.CourseTitle(ctx, notice.CourseID)
	if errors.Is(err, ErrCourseMissing) {
		outcome.Status = StatusNotFound
		j.logger.Warn("course update for missing course", slog.String("course_id", notice.CourseID.String()))
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("load course: %w", err)
	}

	recipients, err := j.store.Subscribers(ctx, notice.CourseID)
	if err != nil {
		return outcome, fmt.Errorf("load subscribers: %w", err)
	}
	if len(recipients) == 0 {
		outcome.Status = StatusNoSubscribers
		return outcome, nil
	}

	var updater string
	if notice.UpdatedBy != nil {
		updater, err = j.store.UpdaterName(ctx, *notice.UpdatedBy)
		if err != nil {
			j.logger.Warn("failed to resolve course updater",
				slog.String("user_id", notice.UpdatedBy.String()),
				slog.String("error", err.Error()))
			updater = ""
		}
	}

	subject := fmt.Sprintf("Course update '%s'", title)
	body := j.body(title, notice, updater)

	// Sends are final. The loop ignores cancellation and always finishes.
	for _, r := range recipients {
		err := j.mailer.SendNotification(r.Email, subject, body)
		metrics.RecordNotification(err)
		if err != nil {
			outcome.Failed++
			j.logger.Error("failed to notify subscriber",
				slog.String("course_id", notice.CourseID.String()),
				slog.String("user_id", r.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		outcome.SubscribersNotified++
	}

	outcome.Status = StatusSuccess
	j.logger.Info("course update notifications sent",
		slog.String("course_id", notice.CourseID.String()),
		slog.Int("sent", outcome.SubscribersNotified),
		slog.Int("failed", outcome.Failed))

	return outcome, nil
}

func (j *CourseUpdateJob) body(title string, notice course.UpdateNotice, updater string) string {
	lines := []string{
		"Hello!",
		fmt.Sprintf("The course \"%s\" you are subscribed to has been updated.", title),
	}
	if len(notice.ChangedFields) > 0 {
		lines = append(lines, "Changed: "+strings.Join(notice.ChangedFields, ", "))
	}
	if updater != "" {
		lines = append(lines, "Updated by: "+updater)
	}
	lines = append(lines, "Open the course: "+j.CourseLink(notice.CourseID))
	return strings.Join(lines, "\n")
}

// CourseLink is the public address of a course.
func (j *CourseUpdateJob) CourseLink(courseID uuid.UUID) string {
	return fmt.Sprintf("%s/api/courses/%s", j.publicURL, courseID)
}

// HandleMessage adapts Run to the queue consumer.
func (j *CourseUpdateJob) HandleMessage(ctx context.Context, msg queue.Message) error {
	var notice course.UpdateNotice
	if err := msg.Decode(&notice); err != nil {
		return err
	}
	if notice.CourseID == uuid.Nil {
		return fmt.Errorf("decode %s: missing course_id", msg.Type)
	}

	_, err := j.Run(ctx, notice)
	return err
}
