package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/lostfound/models"
)

// Supported store dialects.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// ResolveDSN picks the dialect and connection string. DATABASE_URL wins; otherwise
// the discrete DB_* components are assembled for the configured driver.
func ResolveDSN(cfg AppConfig) (driver, dsn string, err error) {
	if raw := strings.TrimSpace(cfg.DatabaseURL); raw != "" {
		switch {
		case strings.HasPrefix(raw, "postgres://"):
			// Hosted Postgres providers still hand out the legacy scheme.
			return DriverPostgres, "postgresql://" + strings.TrimPrefix(raw, "postgres://"), nil
		case strings.HasPrefix(raw, "postgresql://"):
			return DriverPostgres, raw, nil
		case strings.HasPrefix(raw, "mysql://"):
			return DriverMySQL, strings.TrimPrefix(raw, "mysql://"), nil
		case strings.HasPrefix(raw, "sqlite://"):
			return DriverSQLite, strings.TrimPrefix(raw, "sqlite://"), nil
		case strings.HasPrefix(raw, "file:"):
			return DriverSQLite, raw, nil
		default:
			return "", "", fmt.Errorf("unsupported DATABASE_URL scheme in %q", redactURL(raw))
		}
	}

	switch cfg.DBDriver {
	case DriverPostgres, "":
		host := cfg.DBHost
		if cfg.DBPort != "" {
			host = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
		}
		u := url.URL{
			Scheme: "postgresql",
			User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
			Host:   host,
			Path:   "/" + cfg.DBName,
		}
		return DriverPostgres, u.String(), nil
	case DriverMySQL:
		port := cfg.DBPort
		if port == "" {
			port = "3306"
		}
		return DriverMySQL, fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			port,
			cfg.DBName,
		), nil
	case DriverSQLite:
		return DriverSQLite, cfg.DBName, nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// OpenDatabase connects to the configured store and verifies the connection.
func OpenDatabase(cfg AppConfig) (*gorm.DB, error) {
	driver, dsn, err := ResolveDSN(cfg)
	if err != nil {
		return nil, err
	}
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY on concurrent inserts.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	// Surface network/auth problems at boot instead of on the first request.
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// GormConfig returns the shared gorm settings with a logger matched to the app level.
func GormConfig(level string) *gorm.Config {
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// EnsureSchema creates the item table when it does not exist yet. Existing
// tables are left untouched.
func EnsureSchema(db *gorm.DB) error {
	if db.Migrator().HasTable(&models.Item{}) {
		return nil
	}
	if err := db.AutoMigrate(&models.Item{}); err != nil {
		return fmt.Errorf("auto migration failed for item: %w", err)
	}
	return nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
