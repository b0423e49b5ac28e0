package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"), "test-key")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestRunMigrations_Idempotent(t *testing.T) {
	database := openTestDB(t)

	if err := database.RunMigrations(); err != nil {
		t.Fatalf("second run: %v", err)
	}
	v, err := database.SchemaVersion()
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("expected version %d, got %d", len(migrations), v)
	}
}

func TestInvoiceCardsCascade(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	mustExec(t, database, `INSERT INTO invoices (id, space_id, board_id, created_at, updated_at) VALUES ('inv-1', 1, 2, 'now', 'now')`)
	mustExec(t, database, `INSERT INTO invoice_cards (id, invoice_id, card_id, card_title, created_at) VALUES ('ic-1', 'inv-1', 101, 'Card', 'now')`)

	if _, err := database.ExecContext(ctx, `DELETE FROM invoices WHERE id = 'inv-1'`); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoice_cards`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected line items removed with the header, %d left", n)
	}
}

func TestTimeTrackingSummaryView(t *testing.T) {
	database := openTestDB(t)

	mustExec(t, database, `INSERT INTO time_entries (id, card_id, hours, minutes, date, created_at, updated_at) VALUES ('a', 7, 1, 45, '2024-03-01', 'now', 'now')`)
	mustExec(t, database, `INSERT INTO time_entries (id, card_id, hours, minutes, date, created_at, updated_at) VALUES ('b', 7, 0, 30, '2024-03-04', 'now', 'now')`)

	var hours, minutes, all, count int
	var last string
	err := database.QueryRow(`SELECT total_hours, total_minutes, total_minutes_all, entries_count, last_entry_date FROM time_tracking_summary WHERE card_id = 7`).
		Scan(&hours, &minutes, &all, &count, &last)
	if err != nil {
		t.Fatalf("query view: %v", err)
	}
	if hours != 2 || minutes != 15 || all != 135 || count != 2 || last != "2024-03-04" {
		t.Fatalf("unexpected summary: %dh %dm all=%d count=%d last=%s", hours, minutes, all, count, last)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO invoices (id, space_id, board_id, created_at, updated_at) VALUES ('x', 1, 1, 'now', 'now')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	database.QueryRow(`SELECT COUNT(*) FROM invoices`).Scan(&n)
	if n != 0 {
		t.Fatalf("expected rollback, found %d invoices", n)
	}
}

func TestTimeEntryChecks(t *testing.T) {
	database := openTestDB(t)
	_, err := database.Exec(`INSERT INTO time_entries (id, card_id, hours, minutes, date, created_at, updated_at) VALUES ('bad', 1, 24, 0, '2024-01-01', 'now', 'now')`)
	if err == nil {
		t.Fatal("expected hours check constraint to reject 24")
	}
}

func mustExec(t *testing.T, database *DB, query string) {
	t.Helper()
	if _, err := database.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"), "test-key")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
