// Package db provides database utilities for testing
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"gatekeeper/internal/config"
	"gatekeeper/internal/database"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// CleanupTestDB drops all tables in the public schema, including the migrations table
func CleanupTestDB(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `
		SELECT tablename
		FROM pg_tables
		WHERE schemaname = 'public'
	`)
	if err != nil {
		return fmt.Errorf("failed to get table names: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, pq.QuoteIdentifier(tableName))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over table names: %w", err)
	}

	if len(tables) == 0 {
		return nil
	}

	dropQuery := fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", strings.Join(tables, ", "))
	if _, err := db.ExecContext(ctx, dropQuery); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}

// SetupTestDB connects to the test database and migrates it from scratch.
// The test is skipped when no database is reachable.
func SetupTestDB(t *testing.T, cfg *config.DatabaseConfig) *sql.DB {
	t.Helper()

	db, err := database.Connect(*cfg)
	require.NoError(t, err, "Failed to open test database")

	ctx := context.Background()
	if err := database.Ping(ctx, db, 2*time.Second); err != nil {
		db.Close()
		t.Skipf("postgres not available at %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CleanupTestDB(ctx, db), "Failed to cleanup test database")

	var tableCount int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public'`).Scan(&tableCount)
	require.NoError(t, err, "Failed to count tables")
	require.Equal(t, 0, tableCount, "Database should be empty before running migrations")

	// Run migrations using the same setup as the main app
	require.NoError(t, database.RunMigrations(*cfg), "Failed to run migrations")

	return db
}
