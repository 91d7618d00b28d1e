package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/lesson"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

// Payment is a purchase of a course or a lesson. History survives deletion of
// the purchased resource.
type Payment struct {
	types.BaseModel

	UserID        uuid.UUID           `gorm:"type:uuid;not null;column:user_id;index:idx_payments_user_date,priority:1" json:"userId"`
	PaidCourseID  *uuid.UUID          `gorm:"type:uuid;column:paid_course_id;index" json:"paidCourseId,omitempty"`
	PaidLessonID  *uuid.UUID          `gorm:"type:uuid;column:paid_lesson_id;index;check:chk_payments_single_target,NOT (paid_course_id IS NOT NULL AND paid_lesson_id IS NOT NULL)" json:"paidLessonId,omitempty"`
	Amount        types.Money         `gorm:"type:numeric(10,2);not null;check:chk_payments_amount_non_negative,amount >= 0" json:"amount"`
	PaymentMethod types.PaymentMethod `gorm:"type:varchar(20);not null;default:'stripe';column:payment_method;check:chk_payments_method,payment_method IN ('cash','transfer','stripe')" json:"paymentMethod"`
	ProductID     *string             `gorm:"type:varchar(255);column:product_id" json:"productId,omitempty"`
	PriceID       *string             `gorm:"type:varchar(255);column:price_id" json:"priceId,omitempty"`
	SessionID     *string             `gorm:"type:varchar(255);column:session_id;index" json:"sessionId,omitempty"`
	PaymentLink   *string             `gorm:"type:varchar(1000);column:payment_link" json:"paymentLink,omitempty"`
	Status        types.PaymentStatus `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PaymentDate   time.Time           `gorm:"not null;default:now();column:payment_date;index:idx_payments_user_date,priority:2" json:"paymentDate"`

	User       *user.User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PaidCourse *course.Course `gorm:"foreignKey:PaidCourseID;constraint:OnDelete:SET NULL" json:"-"`
	PaidLesson *lesson.Lesson `gorm:"foreignKey:PaidLessonID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides the default table name.
func (Payment) TableName() string { return "payments" }

// ListFilters defines payment query filters. The owner scope is mandatory.
type ListFilters struct {
	UserID        uuid.UUID
	CourseID      *uuid.UUID
	LessonID      *uuid.UUID
	PaymentMethod types.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
	SortBy        string
	SortOrder     string
}

var sortColumns = map[string]string{
	"date":   "payment_date",
	"amount": "amount",
}

// Normalize applies defaults and rejects unknown sort and method values.
func (f *ListFilters) Normalize() error {
	f.SortBy = strings.ToLower(strings.TrimSpace(f.SortBy))
	if f.SortBy == "" {
		f.SortBy = "date"
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		return ErrInvalidSort
	}

	f.SortOrder = strings.ToLower(strings.TrimSpace(f.SortOrder))
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		return ErrInvalidOrder
	}

	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return ErrInvalidMethod
	}
	return nil
}

// Repository is the payment workflow's view of storage.
type Repository interface {
	Course(ctx context.Context, id uuid.UUID) (course.Course, error)
	Create(ctx context.Context, p *Payment) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (Payment, error)
	UpdateStatus(ctx context.Context, id, userID uuid.UUID, status types.PaymentStatus) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]Payment, int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a Repository backed by db.
func NewRepository(db *gorm.DB) Repository {
	return gormRepository{db: db}
}

func (r gormRepository) Course(ctx context.Context, id uuid.UUID) (course.Course, error) {
	c, err := course.Get(ctx, r.db, id)
	if errors.Is(err, course.ErrCourseNotFound) {
		return c, ErrCourseNotFound
	}
	return c, err
}

func (r gormRepository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetForUser scopes the lookup to the owner, so another user's payment is
// indistinguishable from a missing one.
func (r gormRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (Payment, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrPaymentNotFound
	}
	return p, err
}

func (r gormRepository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status types.PaymentStatus) error {
	result := r.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r gormRepository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]Payment, int64, error) {
	if err := filters.Normalize(); err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&Payment{}).Where("user_id = ?", filters.UserID)

	if filters.CourseID != nil {
		query = query.Where("paid_course_id = ?", *filters.CourseID)
	}

	if filters.LessonID != nil {
		query = query.Where("paid_lesson_id = ?", *filters.LessonID)
	}

	if filters.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filters.PaymentMethod)
	}

	if filters.DateFrom != nil {
		query = query.Where("payment_date >= ?", *filters.DateFrom)
	}

	if filters.DateTo != nil {
		query = query.Where("payment_date <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []Payment
	err := query.
		Order(sortColumns[filters.SortBy] + " " + strings.ToUpper(filters.SortOrder)).
		Order("created_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&payments).Error

	return payments, total, err
}
