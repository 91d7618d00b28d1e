package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/subscription"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
)

type gormStore struct {
	db *gorm.DB
}

// NewNotificationStore reads courses, subscriptions and users from db.
func NewNotificationStore(db *gorm.DB) NotificationStore {
	return gormStore{db: db}
}

func (s gormStore) CourseTitle(ctx context.Context, courseID uuid.UUID) (string, error) {
	c, err := course.Get(ctx, s.db, courseID)
	if errors.Is(err, course.ErrCourseNotFound) {
		return "", ErrCourseMissing
	}
	if err != nil {
		return "", err
	}
	return c.Title, nil
}

func (s gormStore) Subscribers(ctx context.Context, courseID uuid.UUID) ([]Recipient, error) {
	ids, err := subscription.SubscriberIDs(ctx, s.db, courseID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	var rows []user.User
	if err := s.db.WithContext(ctx).
		Select("id", "email").
		Where("id IN ? AND email <> ''", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	// keep subscription order
	emails := make(map[uuid.UUID]string, len(rows))
	for _, u := range rows {
		emails[u.ID] = u.Email
	}
	recipients := make([]Recipient, 0, len(rows))
	for _, id := range ids {
		if email, ok := emails[id]; ok {
			recipients = append(recipients, Recipient{UserID: id, Email: email})
		}
	}
	return recipients, nil
}

func (s gormStore) UpdaterName(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := user.Get(ctx, s.db, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if name := u.DisplayName(); name != "" {
		return name, nil
	}
	return u.Email, nil
}
