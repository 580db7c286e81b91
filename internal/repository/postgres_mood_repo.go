package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/moodmate/internal/model"
)

// PostgresMoodRepo はPostgreSQLを使用した気分記録リポジトリ。
type PostgresMoodRepo struct {
	db DBTX
}

// NewPostgresMoodRepo はPostgresMoodRepoを生成する。
func NewPostgresMoodRepo(db DBTX) *PostgresMoodRepo {
	return &PostgresMoodRepo{db: db}
}

// Create は気分記録を作成する。
func (r *PostgresMoodRepo) Create(ctx context.Context, e *model.MoodEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mood_entries (id, user_id, mood, note, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.Mood, e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mood entry: %w", err)
	}
	return nil
}

// ListByUser はユーザーの気分記録を新しい順に最大limit件返す。
func (r *PostgresMoodRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, mood, note, created_at FROM mood_entries
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.MoodEntry
	for rows.Next() {
		e := &model.MoodEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mood entries: %w", err)
	}
	return entries, nil
}

// LatestByUser はユーザーの最新の気分記録を返す。記録が無い場合はnilを返す。
func (r *PostgresMoodRepo) LatestByUser(ctx context.Context, userID string) (*model.MoodEntry, error) {
	e := &model.MoodEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, mood, note, created_at FROM mood_entries
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&e.ID, &e.UserID, &e.Mood, &e.Note, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest mood: %w", err)
	}
	return e, nil
}

// compile-time interface check
var _ MoodRepository = (*PostgresMoodRepo)(nil)
