package course

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

const maxTitleLength = 200

// DefaultPrice applies when a course is created without a price.
var DefaultPrice = types.NewMoney(10000)

// Course is a purchasable set of lessons.
type Course struct {
	types.BaseModel

	Title       string      `gorm:"type:varchar(200);not null" json:"title"`
	Description string      `gorm:"type:text;not null;default:''" json:"description"`
	Preview     *string     `gorm:"type:varchar(500)" json:"preview,omitempty"`
	Price       types.Money `gorm:"type:numeric(10,2);not null;default:10000.00;check:chk_courses_price_non_negative,price >= 0" json:"price"`
	OwnerID     *uuid.UUID  `gorm:"type:uuid;column:owner_id;index" json:"ownerId,omitempty"`
	LastUpdated *time.Time  `gorm:"column:last_updated" json:"lastUpdated,omitempty"`

	Owner *user.User `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides the default table name.
func (Course) TableName() string { return "courses" }

// ListFilters defines course query filters.
type ListFilters struct {
	Keyword string
	OwnerID *uuid.UUID
}

// CreateInput carries data for creating a new course.
type CreateInput struct {
	Title       string
	Description string
	Preview     *string
	Price       *types.Money
	OwnerID     *uuid.UUID
}

// UpdateInput captures mutable course fields. Nil means unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Preview     *string
	Price       *types.Money
}

// List retrieves paginated courses with filters.
func List(ctx context.Context, db *gorm.DB, filters ListFilters, params pagination.Params) ([]Course, int64, error) {
	query := db.WithContext(ctx).Model(&Course{})

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}

	if filters.OwnerID != nil {
		query = query.Where("owner_id = ?", *filters.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []Course
	if err := query.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

// Get retrieves a course by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (Course, error) {
	var course Course
	if err := db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		return course, err
	}
	return course, nil
}

// Create inserts a new course.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (Course, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return Course{}, err
	}

	price := DefaultPrice
	if input.Price != nil {
		if input.Price.IsNegative() {
			return Course{}, ErrNegativePrice
		}
		price = *input.Price
	}

	course := Course{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Preview:     input.Preview,
		Price:       price,
		OwnerID:     input.OwnerID,
	}

	if err := db.WithContext(ctx).Create(&course).Error; err != nil {
		return course, err
	}

	return course, nil
}

// Update applies input and returns the stored course with the names of the
// fields whose value actually changed. last_updated is stamped only when
// something changed.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, input UpdateInput, now time.Time) (Course, []string, error) {
	course, err := Get(ctx, db, id)
	if err != nil {
		return course, nil, err
	}

	updates := map[string]interface{}{}

	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return course, nil, err
		}
		if title != course.Title {
			updates["title"] = title
		}
	}

	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description != course.Description {
			updates["description"] = description
		}
	}

	if input.Preview != nil && !equalStringPtr(input.Preview, course.Preview) {
		updates["preview"] = input.Preview
	}

	if input.Price != nil {
		if input.Price.IsNegative() {
			return course, nil, ErrNegativePrice
		}
		if !input.Price.Equal(course.Price) {
			updates["price"] = *input.Price
		}
	}

	if len(updates) == 0 {
		return course, nil, nil
	}

	changed := make([]string, 0, len(updates))
	for field := range updates {
		changed = append(changed, field)
	}
	slices.Sort(changed)

	updates["last_updated"] = now
	if err := db.WithContext(ctx).Model(&Course{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return course, nil, err
	}

	course, err = Get(ctx, db, id)
	return course, changed, err
}

// Touch stamps last_updated without changing content.
func Touch(ctx context.Context, db *gorm.DB, id uuid.UUID, now time.Time) error {
	return db.WithContext(ctx).Model(&Course{}).Where("id = ?", id).Update("last_updated", now).Error
}

// Delete removes a course. Lessons and subscriptions cascade.
func Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(&Course{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCourseNotFound
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

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
