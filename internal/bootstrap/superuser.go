package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/user"
)

const defaultSuperuserName = "Super"

// EnsureDefaultSuperuser creates the configured superuser or brings an
// existing account with that email back to an active superuser with the
// configured password. An empty email is a no-op.
func EnsureDefaultSuperuser(ctx context.Context, db *gorm.DB, email, password string, logger *slog.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	existing, err := user.GetByEmail(ctx, db, email)
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		_, createErr := user.Create(ctx, db, user.CreateInput{
			Email:       email,
			Password:    password,
			FirstName:   defaultSuperuserName,
			IsStaff:     true,
			IsSuperuser: true,
		})
		if createErr != nil {
			if isUndefinedTableError(createErr) {
				logger.Warn("default superuser skipped - users table missing", slog.String("email", email))
				return nil
			}
			return fmt.Errorf("create superuser: %w", createErr)
		}
		logger.Info("default superuser created", slog.String("email", email))
		return nil

	case err != nil:
		if isUndefinedTableError(err) {
			logger.Warn("default superuser skipped - users table missing", slog.String("email", email))
			return nil
		}
		return fmt.Errorf("get superuser: %w", err)
	}

	updates := map[string]interface{}{}

	if !existing.ComparePassword(password) {
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(password), 10)
		if hashErr != nil {
			return fmt.Errorf("hash superuser password: %w", hashErr)
		}
		updates["password"] = string(hashed)
	}
	if !existing.IsSuperuser {
		updates["is_superuser"] = true
	}
	if !existing.IsStaff {
		updates["is_staff"] = true
	}
	if !existing.Active {
		updates["is_active"] = true
	}

	if len(updates) == 0 {
		logger.Info("default superuser already up to date", slog.String("email", email))
		return nil
	}

	if err := db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update superuser: %w", err)
	}

	logger.Info("default superuser synchronized", slog.String("email", email))
	return nil
}

func isUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, `relation "users" does not exist`)
}
