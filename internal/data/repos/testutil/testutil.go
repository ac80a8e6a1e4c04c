package testutil

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/db"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/logger"
)

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

var randomizationTables = []string{
	"subject_randomization",
	"randomization_list_entry",
	"randomization_stratum",
	"randomization_audit_outbox",
	"randomization_config",
	"study_group",
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database private to the test. With TEST_POSTGRES_DSN
// set it is the shared Postgres database, truncated before and after the test;
// otherwise a fresh in-memory SQLite database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	if dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN")); dsn != "" {
		return postgresDB(tb, dsn)
	}
	return SQLiteDB(tb)
}

// SQLiteDB always returns a fresh in-memory SQLite database.
func SQLiteDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	gdb, err := db.Open(sqlite.Open(dsn), gormLogger.Silent)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(gdb, true); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return gdb
}

func postgresDB(tb testing.TB, dsn string) *gorm.DB {
	tb.Helper()
	pgOnce.Do(func() {
		pgDB, pgErr = db.Open(postgres.Open(dsn), gormLogger.Silent)
		if pgErr != nil {
			return
		}
		pgErr = db.AutoMigrateAll(pgDB, true)
	})
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	truncate(tb, pgDB)
	tb.Cleanup(func() { truncate(tb, pgDB) })
	return pgDB
}

func truncate(tb testing.TB, gdb *gorm.DB) {
	tb.Helper()
	stmt := "TRUNCATE " + strings.Join(randomizationTables, ", ") + " RESTART IDENTITY"
	if err := gdb.Exec(stmt).Error; err != nil {
		tb.Fatalf("truncate: %v", err)
	}
}

// IsPostgres reports whether tests run against Postgres.
func IsPostgres(gdb *gorm.DB) bool {
	return gdb.Dialector.Name() == "postgres"
}
