package lesson

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/types"
	"github.com/mo-amir99/course-platform-go/pkg/validation"
)

const maxTitleLength = 200

// Lesson represents a lesson within a course.
type Lesson struct {
	types.BaseModel

	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`
	Preview     *string    `gorm:"type:varchar(500)" json:"preview,omitempty"`
	VideoLink   *string    `gorm:"type:varchar(500);column:video_link" json:"videoLink,omitempty"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;column:course_id;index" json:"courseId"`
	OwnerID     *uuid.UUID `gorm:"type:uuid;column:owner_id;index" json:"ownerId,omitempty"`

	Course *course.Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Owner  *user.User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides the default table name.
func (Lesson) TableName() string { return "lessons" }

// ListFilters defines lesson query filters.
type ListFilters struct {
	CourseID *uuid.UUID
	Keyword  string
}

// CreateInput carries data for creating a new lesson.
type CreateInput struct {
	Title       string
	Description string
	Preview     *string
	VideoLink   *string
	CourseID    uuid.UUID
	OwnerID     *uuid.UUID
}

// UpdateInput captures mutable lesson fields. Nil means unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Preview     *string
	VideoLink   *string
}

// List retrieves paginated lessons, oldest first.
func List(ctx context.Context, db *gorm.DB, filters ListFilters, params pagination.Params) ([]Lesson, int64, error) {
	query := db.WithContext(ctx).Model(&Lesson{})

	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lessons []Lesson
	if err := query.Order("created_at ASC").Offset(params.Skip).Limit(params.Limit).Find(&lessons).Error; err != nil {
		return nil, 0, err
	}

	return lessons, total, nil
}

// Get retrieves a lesson by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Lesson, error) {
	var lesson Lesson
	if err := db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lesson, ErrLessonNotFound
		}
		return lesson, err
	}
	return lesson, nil
}

// Create inserts a new lesson into an existing course.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (Lesson, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return Lesson{}, err
	}

	if err := validateVideoLink(input.VideoLink); err != nil {
		return Lesson{}, err
	}

	if _, err := course.Get(ctx, db, input.CourseID); err != nil {
		if errors.Is(err, course.ErrCourseNotFound) {
			return Lesson{}, ErrUnknownCourse
		}
		return Lesson{}, err
	}

	lesson := Lesson{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Preview:     input.Preview,
		VideoLink:   trimmed(input.VideoLink),
		CourseID:    input.CourseID,
		OwnerID:     input.OwnerID,
	}

	if err := db.WithContext(ctx).Create(&lesson).Error; err != nil {
		return lesson, err
	}

	return lesson, nil
}

// Update modifies an existing lesson and reports whether any field changed.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, input UpdateInput) (Lesson, bool, error) {
	lesson, err := Get(ctx, db, id)
	if err != nil {
		return lesson, false, err
	}

	updates := map[string]interface{}{}

	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return lesson, false, err
		}
		if title != lesson.Title {
			updates["title"] = title
		}
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description != lesson.Description {
			updates["description"] = description
		}
	}
	if input.Preview != nil && !equalStringPtr(input.Preview, lesson.Preview) {
		updates["preview"] = input.Preview
	}
	if input.VideoLink != nil {
		if err := validateVideoLink(input.VideoLink); err != nil {
			return lesson, false, err
		}
		link := trimmed(input.VideoLink)
		if !equalStringPtr(link, lesson.VideoLink) {
			updates["video_link"] = link
		}
	}

	if len(updates) == 0 {
		return lesson, false, nil
	}

	if err := db.WithContext(ctx).Model(&Lesson{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return lesson, false, err
	}

	lesson, err = Get(ctx, db, id)
	return lesson, true, err
}

// Delete removes a lesson.
func Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(&Lesson{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLessonNotFound
	}
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// An empty link clears the video.
func validateVideoLink(link *string) error {
	if link == nil || strings.TrimSpace(*link) == "" {
		return nil
	}
	return validation.YouTubeLink(*link)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
