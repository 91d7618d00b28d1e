package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

var connectionErrors = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"connection timed out",
	"bad connection",
	"invalid connection",
	"closed network connection",
	"connection lost",
	"server closed",
	"unexpected eof",
}

// ReconnectPlugin watches statement errors and re-establishes the pool when the
// error looks like a dropped connection. The failed statement itself is not retried.
type ReconnectPlugin struct {
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	reconnects atomic.Int64
}

// NewReconnectPlugin creates a new reconnect plugin.
func NewReconnectPlugin(logger *slog.Logger) *ReconnectPlugin {
	return &ReconnectPlugin{
		logger:     logger,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

// Name returns the plugin name.
func (p *ReconnectPlugin) Name() string {
	return "reconnect_plugin"
}

// Initialize registers after-callbacks on every statement kind.
func (p *ReconnectPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []error{
		cb.Query().After("gorm:query").Register("reconnect:after_query", p.afterStatement),
		cb.Create().After("gorm:create").Register("reconnect:after_create", p.afterStatement),
		cb.Update().After("gorm:update").Register("reconnect:after_update", p.afterStatement),
		cb.Delete().After("gorm:delete").Register("reconnect:after_delete", p.afterStatement),
		cb.Row().After("gorm:row").Register("reconnect:after_row", p.afterStatement),
		cb.Raw().After("gorm:raw").Register("reconnect:after_raw", p.afterStatement),
	}
	return errors.Join(registrations...)
}

func (p *ReconnectPlugin) afterStatement(db *gorm.DB) {
	if !isConnectionError(db.Error) {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	p.logger.Warn("database connection lost, attempting to reconnect", slog.String("error", db.Error.Error()))
	if !p.attemptReconnect(sqlDB) {
		p.logger.Error("database reconnection failed after retries")
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *ReconnectPlugin) attemptReconnect(sqlDB *sql.DB) bool {
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		time.Sleep(p.retryDelay * time.Duration(attempt))

		if err := sqlDB.Ping(); err == nil {
			total := p.reconnects.Add(1)
			p.logger.Info("database reconnection successful",
				slog.Int("attempt", attempt),
				slog.Int64("total_reconnects", total),
			)
			return true
		}

		p.logger.Warn("reconnection attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", p.maxRetries),
		)
	}

	return false
}

// Reconnects returns the number of successful reconnections.
func (p *ReconnectPlugin) Reconnects() int64 {
	return p.reconnects.Load()
}
