package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-album-center/internal/config"
)

// DialectorFactory opens a gorm dialector for a DSN.
type DialectorFactory func(dsn string) gorm.Dialector

var dialectorFactories = map[string]DialectorFactory{
	"postgres": func(dsn string) gorm.Dialector { return postgres.Open(dsn) },
	"mysql":    func(dsn string) gorm.Dialector { return mysql.Open(dsn) },
	"sqlite":   func(dsn string) gorm.Dialector { return sqlite.Open(dsn) },
}

// Types lists the supported database types.
func Types() []string {
	types := make([]string, 0, len(dialectorFactories))
	for t := range dialectorFactories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open connects to the configured database and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	factory, ok := dialectorFactories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	db, err := OpenDialector(factory(cfg.DSN()), log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("type", cfg.Type).
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Msg("database connection established")
	return db, nil
}

// OpenDialector opens db with the gorm logger bridged onto log.
func OpenDialector(dialector gorm.Dialector, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(&log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory SQLite database. The single
// connection keeps the schema alive for the lifetime of db.
func OpenMemory(name string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := OpenDialector(sqlite.Open(dsn), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
