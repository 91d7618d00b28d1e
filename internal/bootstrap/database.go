// Package bootstrap wires the schema and seed data shared by the API, the
// worker and the maintenance scripts.
package bootstrap

import (
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/features/lesson"
	"github.com/mo-amir99/course-platform-go/internal/features/payment"
	"github.com/mo-amir99/course-platform-go/internal/features/subscription"
	"github.com/mo-amir99/course-platform-go/internal/features/user"
	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/database/migrations"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&course.Course{},
		&lesson.Lesson{},
		&subscription.Subscription{},
		&payment.Payment{},
	}
}

// Tables lists the table names of Models, dependents first, plus the
// migration bookkeeping table.
func Tables() []string {
	return []string{"payments", "subscriptions", "lessons", "courses", "users", "schema_migrations"}
}

var registerOnce sync.Once

// RegisterMigrations adds the schema steps that AutoMigrate cannot express.
func RegisterMigrations() {
	registerOnce.Do(func() {
		// matches the inactivity job's WHERE clause
		migrations.Register("users_inactivity_index", func(db *gorm.DB) error {
			return db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_inactivity ON users (last_login)
				WHERE is_active AND NOT is_staff AND NOT is_superuser`).Error
		})
		migrations.Register("payments_user_date_index", func(db *gorm.DB) error {
			return db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_user_date ON payments (user_id, payment_date DESC)`).Error
		})
	})
}

// ApplyDatabaseMigrations migrates Models and then runs the registered steps
// when enabled via configuration.
func ApplyDatabaseMigrations(db *gorm.DB, cfg config.DatabaseConfig, logger *slog.Logger) error {
	if !cfg.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "DB_RUN_MIGRATIONS=false"))
		return nil
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	RegisterMigrations()
	if err := migrations.Run(db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return nil
}

// DropTables removes every application table.
func DropTables(db *gorm.DB, logger *slog.Logger) error {
	for _, table := range Tables() {
		if err := db.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		logger.Info("table dropped", slog.String("table", table))
	}
	return nil
}
