// Package dbtest opens in-memory sqlite databases carrying the same tables as
// the goose migrations, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quickcart-labs/quickcart-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  sub_category TEXT,
  image_url TEXT,
  sku TEXT,
  price TEXT NOT NULL,
  sale_price TEXT,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  allow_subscription INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS product_aliases (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  alias TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_slug TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price TEXT NOT NULL,
  variation TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_id, variation)
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  shipping_fee TEXT NOT NULL,
  handling_fee TEXT NOT NULL,
  grand_total TEXT NOT NULL,
  currency TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  status TEXT NOT NULL,
  gateway_order_id TEXT,
  payment_id TEXT,
  payment_link TEXT,
  status_history TEXT NOT NULL DEFAULT '[]',
  notes TEXT,
  cancelled_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_slug TEXT NOT NULL,
  sku TEXT,
  image_url TEXT,
  variation TEXT NOT NULL DEFAULT '',
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  line_total TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  gateway_payment_id TEXT,
  signature TEXT,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  receipt TEXT NOT NULL,
  status TEXT NOT NULL,
  method TEXT,
  failure_reason TEXT,
  refunds TEXT NOT NULL DEFAULT '[]',
  captured_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  driver_id TEXT,
  status TEXT NOT NULL,
  tracking_code TEXT NOT NULL UNIQUE,
  delivery_address TEXT NOT NULL,
  current_lat REAL,
  current_lng REAL,
  location_updated_at DATETIME,
  otp_digest TEXT,
  otp_expires_at DATETIME,
  otp_verified INTEGER NOT NULL DEFAULT 0,
  estimated_delivery_at DATETIME,
  actual_delivery_at DATETIME,
  proof_url TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  frequency TEXT NOT NULL,
  delivery_day TEXT NOT NULL,
  next_delivery_date DATETIME NOT NULL,
  total_cost TEXT NOT NULL,
  status TEXT NOT NULL,
  last_due_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a fresh database named after the test. A single pooled
// connection keeps the in-memory database alive and serializes writers.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString())

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// OpenClient wraps Open in a db.Client.
func OpenClient(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromGorm(Open(t))
}
