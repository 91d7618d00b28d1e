package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

const bcryptCost = 10

// User represents an account. Email is the login.
type User struct {
	types.BaseModel

	Email       string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"`
	FirstName   string         `gorm:"type:varchar(150);not null;default:''" json:"firstName"`
	LastName    string         `gorm:"type:varchar(150);not null;default:''" json:"lastName"`
	Phone       *string        `gorm:"type:varchar(20)" json:"phone,omitempty"`
	City        *string        `gorm:"type:varchar(100)" json:"city,omitempty"`
	Avatar      *string        `gorm:"type:varchar(500)" json:"avatar,omitempty"`
	IsStaff     bool           `gorm:"not null;default:false;column:is_staff" json:"isStaff"`
	IsSuperuser bool           `gorm:"not null;default:false;column:is_superuser" json:"isSuperuser"`
	Groups      pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"groups"`
	Active      bool           `gorm:"not null;default:true;column:is_active;index" json:"isActive"`
	LastLogin   *time.Time     `gorm:"column:last_login;index" json:"lastLogin,omitempty"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// DisplayName is "First Last", or empty when neither is set.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// PublicUser is what moderators see when browsing accounts.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	City      *string   `json:"city,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Active    bool      `json:"isActive"`
}

// Public projects u without contact details and privilege flags.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		City:      u.City,
		Avatar:    u.Avatar,
		Active:    u.Active,
	}
}

// ListFilters defines user query filters.
type ListFilters struct {
	Keyword string
	Active  *bool
}

// CreateInput carries data for creating a new user.
type CreateInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       *string
	City        *string
	Avatar      *string
	IsStaff     bool
	IsSuperuser bool
	Groups      []string
}

// UpdateInput captures mutable user fields. Nil means unchanged.
type UpdateInput struct {
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	Phone       *string
	City        *string
	Avatar      *string
	Active      *bool
	IsStaff     *bool
	IsSuperuser *bool
	Groups      *[]string
}

// List queries users with filters and pagination.
func List(ctx context.Context, db *gorm.DB, filters ListFilters, params pagination.Params) ([]User, int64, error) {
	query := db.WithContext(ctx).Model(&User{})

	if filters.Keyword != "" {
		keyword := "%" + strings.ToLower(filters.Keyword) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			keyword, keyword, keyword)
	}

	if filters.Active != nil {
		query = query.Where("is_active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []User
	if err := query.Order("created_at DESC").Offset(params.Skip).Limit(params.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Get retrieves a user by ID.
func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (User, error) {
	var user User
	if err := db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// GetByEmail retrieves a user by case-insensitive email.
func GetByEmail(ctx context.Context, db *gorm.DB, email string) (User, error) {
	var user User
	if err := db.WithContext(ctx).First(&user, "LOWER(email) = ?", normalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

// Create inserts a new user with hashed password.
func Create(ctx context.Context, db *gorm.DB, input CreateInput) (User, error) {
	if len(input.Password) < 8 {
		return User{}, ErrInvalidPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	groups := input.Groups
	if groups == nil {
		groups = []string{}
	}

	user := User{
		Email:       normalizeEmail(input.Email),
		Password:    string(hashedPassword),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Phone:       trimStringPtr(input.Phone),
		City:        trimStringPtr(input.City),
		Avatar:      trimStringPtr(input.Avatar),
		IsStaff:     input.IsStaff,
		IsSuperuser: input.IsSuperuser,
		Groups:      groups,
		Active:      true,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user, ErrEmailTaken
		}
		return user, err
	}

	return user, nil
}

// Update modifies an existing user.
func Update(ctx context.Context, db *gorm.DB, id uuid.UUID, input UpdateInput) (User, error) {
	user, err := Get(ctx, db, id)
	if err != nil {
		return user, err
	}

	updates := map[string]interface{}{}

	if input.Email != nil {
		trimmed := normalizeEmail(*input.Email)
		if trimmed == "" {
			return user, ErrEmptyEmail
		}
		updates["email"] = trimmed
	}

	if input.Password != nil {
		if len(*input.Password) < 8 {
			return user, ErrInvalidPassword
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcryptCost)
		if err != nil {
			return user, err
		}
		updates["password"] = string(hashedPassword)
	}

	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		updates["phone"] = trimStringPtr(input.Phone)
	}
	if input.City != nil {
		updates["city"] = trimStringPtr(input.City)
	}
	if input.Avatar != nil {
		updates["avatar"] = trimStringPtr(input.Avatar)
	}
	if input.Active != nil {
		updates["is_active"] = *input.Active
	}
	if input.IsStaff != nil {
		updates["is_staff"] = *input.IsStaff
	}
	if input.IsSuperuser != nil {
		updates["is_superuser"] = *input.IsSuperuser
	}
	if input.Groups != nil {
		updates["groups"] = pq.StringArray(*input.Groups)
	}

	if len(updates) > 0 {
		if err := db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return user, ErrEmailTaken
			}
			return user, err
		}
	}

	return Get(ctx, db, id)
}

// RecordLogin stamps last_login, which the inactivity job reads.
func RecordLogin(ctx context.Context, db *gorm.DB, id uuid.UUID, at time.Time) error {
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", at).Error
}

// Delete removes a user.
func Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(&User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ComparePassword checks if the provided password matches the user's hashed password.
func (u *User) ComparePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
