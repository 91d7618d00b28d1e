// Package migrations runs named one-off schema steps and remembers which ones
// have been applied in the schema_migrations table.
package migrations

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Record is a row of schema_migrations.
type Record struct {
	Name      string    `gorm:"primaryKey;size:200"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the bookkeeping table.
func (Record) TableName() string {
	return "schema_migrations"
}

type namedMigration struct {
	name string
	fn   func(*gorm.DB) error
}

var (
	registryMu sync.RWMutex
	registry   []namedMigration
)

// Register adds a migration in FIFO order. Registering a name twice is a no-op.
func Register(name string, fn func(*gorm.DB) error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, m := range registry {
		if m.name == name {
			return
		}
	}
	registry = append(registry, namedMigration{name: name, fn: fn})
}

// Names lists registered migrations in run order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, len(registry))
	for i, m := range registry {
		names[i] = m.name
	}
	return names
}

// Run executes every registered migration that has no schema_migrations row.
// Each step and its bookkeeping row commit together.
func Run(db *gorm.DB, log *slog.Logger) error {
	registryMu.RLock()
	pending := make([]namedMigration, len(registry))
	copy(pending, registry)
	registryMu.RUnlock()

	if err := db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	if err := db.Model(&Record{}).Pluck("name", &applied).Error; err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	ran := 0
	for _, migration := range pending {
		if done[migration.name] {
			continue
		}

		if log != nil {
			log.Info("running migration", slog.String("name", migration.name))
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.fn(tx); err != nil {
				return err
			}
			return tx.Create(&Record{Name: migration.name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.name, err)
		}
		ran++
	}

	if log != nil {
		log.Info("migrations up to date", slog.Int("applied", ran), slog.Int("registered", len(pending)))
	}
	return nil
}
