package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"canopy/internal/shared/config"
	appLogger "canopy/internal/shared/logger"
)

var (
	db            *gorm.DB
	maintenanceDB *gorm.DB
	dbMu          sync.RWMutex
)

// Init opens the application-role connection. This role is subject to
// row-level security on every tenant-scoped table and cannot bypass it.
func Init(cfg *config.DatabaseConfig) error {
	database, err := open(cfg.GetDSN(), cfg)
	if err != nil {
		return err
	}

	dbMu.Lock()
	db = database
	dbMu.Unlock()

	appLogger.Info("database connection established",
		"database", cfg.Database, "role", "application")

	return nil
}

// InitMaintenance opens the BYPASSRLS-role connection used by migrations,
// the consistency checker, and administrative commands. Request handling
// never touches this connection.
func InitMaintenance(cfg *config.DatabaseConfig) error {
	database, err := open(cfg.GetMaintenanceDSN(), cfg)
	if err != nil {
		return err
	}

	dbMu.Lock()
	maintenanceDB = database
	dbMu.Unlock()

	appLogger.Info("database connection established",
		"database", cfg.Database, "role", "maintenance")

	return nil
}

func open(dsn string, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.New(
		&filteredLogger{},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	database, err := gorm.Open(postgres.New(postgres.Config{
		DSN: dsn,
	}), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return database, nil
}

// Get returns the application-role connection
func Get() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// GetMaintenance returns the maintenance-role connection, falling back to
// the application connection when no separate role is configured.
func GetMaintenance() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	if maintenanceDB != nil {
		return maintenanceDB
	}
	return db
}

// Close closes both connections
func Close() error {
	dbMu.RLock()
	conns := []*gorm.DB{db, maintenanceDB}
	dbMu.RUnlock()

	for _, current := range conns {
		if current == nil {
			continue
		}
		sqlDB, err := current.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	appLogger.Info("database connections closed")
	return nil
}

// filteredLogger routes gorm log lines through the application logger
type filteredLogger struct{}

func (l *filteredLogger) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	if strings.Contains(msg, "[error]") || strings.Contains(msg, "ERROR") {
		appLogger.Error("database error", "details", msg)
	} else if strings.Contains(msg, "slow sql") || strings.Contains(msg, "SLOW SQL") {
		appLogger.Warn("slow query", "details", msg)
	} else {
		appLogger.Debug("database query", "details", msg)
	}
}
