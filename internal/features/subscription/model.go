package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
)

// Subscription links a user to a course they follow. One row per pair.
type Subscription struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_subscriptions_user_course,priority:1" json:"userId"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;column:course_id;uniqueIndex:idx_subscriptions_user_course,priority:2;index" json:"courseId"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`

	User   *user.User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course *course.Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the default table name.
func (Subscription) TableName() string { return "subscriptions" }

// Result is the state after a toggle.
type Result struct {
	CourseID    uuid.UUID
	CourseTitle string
	Subscribed  bool
}

// Toggle flips the user's subscription to a course in one transaction: an
// existing row is removed, otherwise one is inserted. Losing an insert race to
// a concurrent toggle still ends subscribed.
func Toggle(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (Result, error) {
	c, err := course.Get(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, course.ErrCourseNotFound) {
			return Result{}, ErrCourseNotFound
		}
		return Result{}, err
	}

	result := Result{CourseID: c.ID, CourseTitle: c.Title}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Delete(&Subscription{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected > 0 {
			return nil
		}

		result.Subscribed = true
		return tx.Create(&Subscription{UserID: userID, CourseID: courseID}).Error
	})
	if err != nil {
		if IsUniqueViolation(err) {
			result.Subscribed = true
			return result, nil
		}
		return Result{}, err
	}

	return result, nil
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Status reports whether the user follows the course.
func Status(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&Subscription{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error
	return n > 0, err
}

// ListCourses returns the courses the user follows, most recent subscription first.
func ListCourses(ctx context.Context, db *gorm.DB, userID uuid.UUID, params pagination.Params) ([]course.Course, int64, error) {
	query := db.WithContext(ctx).Model(&course.Course{}).
		Joins("JOIN subscriptions ON subscriptions.course_id = courses.id").
		Where("subscriptions.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []course.Course
	if err := query.Select("courses.*").
		Order("subscriptions.created_at DESC").
		Offset(params.Skip).Limit(params.Limit).
		Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

// SubscriberIDs returns the ids of users following a course.
func SubscriberIDs(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).Model(&Subscription{}).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
