package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/TobiSchelling/antirec/internal/movie"
)

// InsertProfile stores a new profile and returns its generated ID.
func (db *DB) InsertProfile(ctx context.Context, selectedIDs []int, pref movie.AntiPreference, taste movie.TasteSummary) (string, error) {
	if selectedIDs == nil {
		selectedIDs = []int{}
	}
	ids, err := json.Marshal(selectedIDs)
	if err != nil {
		return "", fmt.Errorf("encoding selected ids: %w", err)
	}
	prefJSON, err := json.Marshal(pref)
	if err != nil {
		return "", fmt.Errorf("encoding anti-preference: %w", err)
	}
	tasteJSON, err := json.Marshal(taste)
	if err != nil {
		return "", fmt.Errorf("encoding taste summary: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, selected_ids, anti_preference, taste_summary) VALUES (?, ?, ?, ?)`,
		id, string(ids), string(prefJSON), string(tasteJSON),
	)
	if err != nil {
		return "", fmt.Errorf("inserting profile: %w", err)
	}
	return id, nil
}

const profileColumns = `p.id, p.selected_ids, p.anti_preference, p.taste_summary, p.created_at,
	(SELECT COUNT(*) FROM profile_views v WHERE v.profile_id = p.id)`

// GetProfile returns a profile by ID, or nil if it does not exist.
func (db *DB) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns all profiles, newest first.
func (db *DB) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles p ORDER BY p.created_at DESC, p.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile and its view history. It reports whether
// a profile was deleted.
func (db *DB) DeleteProfile(ctx context.Context, id string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_views WHERE profile_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting views: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(s scanner) (*Profile, error) {
	var p Profile
	var ids, pref, taste string
	var createdAt sql.NullString
	if err := s.Scan(&p.ID, &ids, &pref, &taste, &createdAt, &p.Views); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &p.SelectedIDs); err != nil {
		return nil, fmt.Errorf("decoding selected ids of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(pref), &p.AntiPreference); err != nil {
		return nil, fmt.Errorf("decoding anti-preference of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(taste), &p.TasteSummary); err != nil {
		return nil, fmt.Errorf("decoding taste summary of %s: %w", p.ID, err)
	}
	p.CreatedAt = createdAt.String
	return &p, nil
}
