package payments

import (
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/logger"
)

func setupPaymentsTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	schemas := []string{
		`
CREATE TABLE IF NOT EXISTS payment_collections (
  id TEXT PRIMARY KEY,
  region_id TEXT NOT NULL,
  currency_code TEXT NOT NULL,
  amount TEXT NOT NULL,
  authorized_amount TEXT NOT NULL DEFAULT '0',
  refunded_amount TEXT NOT NULL DEFAULT '0',
  status TEXT NOT NULL DEFAULT 'not_paid',
  completed_at DATETIME,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS payment_sessions (
  id TEXT PRIMARY KEY,
  payment_collection_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  currency_code TEXT NOT NULL,
  provider_id TEXT NOT NULL,
  data TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  authorized_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  payment_collection_id TEXT NOT NULL,
  payment_session_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  authorized_amount TEXT NOT NULL,
  currency_code TEXT NOT NULL,
  provider_id TEXT NOT NULL,
  data TEXT,
  captured_at DATETIME,
  canceled_at DATETIME,
  cart_id TEXT,
  order_id TEXT,
  order_edit_id TEXT,
  customer_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS captures (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  created_by TEXT,
  created_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS refunds (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  created_by TEXT,
  created_at DATETIME
);`,
	}
	for _, schema := range schemas {
		require.NoError(t, conn.Exec(schema).Error)
	}

	t.Cleanup(func() {
		sqlDB, err := conn.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.FromGorm(conn)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}
