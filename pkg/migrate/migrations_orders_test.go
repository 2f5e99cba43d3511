package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_transaction_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_display_id",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (total >= 0)",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPaymentAttemptsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_payment_attempts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payment_attempts",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_attempts_transaction_id",
		"CREATE INDEX IF NOT EXISTS idx_payment_attempts_status_created_at",
		"CHECK (remaining_amount >= 0)",
		"DROP TABLE IF EXISTS payment_attempts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTypesMigrationDeclaresEnumsAndComposite(t *testing.T) {
	content := readMigration(t, "*_create_checkout_types.sql")

	checks := []string{
		"CREATE TYPE order_status AS ENUM",
		"CREATE TYPE payment_method AS ENUM",
		"CREATE TYPE payment_status AS ENUM",
		"CREATE TYPE wallet_entry_kind AS ENUM",
		"CREATE TYPE shipping_address_t AS (",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
