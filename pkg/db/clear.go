package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearJournal truncates the bridge_calls table. Schema is preserved; only data
// is removed. RESTART IDENTITY resets the id sequence.
func ClearJournal(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing call journal", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE bridge_calls RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Call journal cleared", clearLogPrefix))
	return nil
}
