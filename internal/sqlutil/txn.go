package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
)

// RunTx executes fn inside a *sql.Tx. If fn returns an error the tx
// rolls back, else it commits.
func RunTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
