package database

import (
	"context"
	"fmt"
)

// RecordViews remembers which movies were shown for a profile.
func (db *DB) RecordViews(ctx context.Context, profileID string, movieIDs []int) error {
	if len(movieIDs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO profile_views (profile_id, movie_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range movieIDs {
		if _, err := stmt.ExecContext(ctx, profileID, id); err != nil {
			return fmt.Errorf("recording view of %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// GetViewedIDs returns the distinct movie IDs already shown for a profile.
func (db *DB) GetViewedIDs(ctx context.Context, profileID string) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT movie_id FROM profile_views WHERE profile_id = ?`, profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = true
	}
	return seen, rows.Err()
}
