package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/moodmate/internal/model"
)

const reminderColumns = `id, user_id, message, remind_at, repeat, active, created_at`

// PostgresReminderRepo はPostgreSQLを使用したリマインダーリポジトリ。
type PostgresReminderRepo struct {
	db DBTX
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db DBTX) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

func scanReminder(s rowScanner) (*model.Reminder, error) {
	r := &model.Reminder{}
	var repeat string
	if err := s.Scan(&r.ID, &r.UserID, &r.Message, &r.Time, &repeat, &r.Active, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Repeat = model.Repeat(repeat)
	return r, nil
}

func (r *PostgresReminderRepo) queryReminders(ctx context.Context, query string, args ...any) ([]*model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*model.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// Create はリマインダーを作成する。
func (r *PostgresReminderRepo) Create(ctx context.Context, rem *model.Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, message, remind_at, repeat, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rem.ID, rem.UserID, rem.Message, rem.Time, string(rem.Repeat), rem.Active, rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
func (r *PostgresReminderRepo) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	rem, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	return rem, nil
}

// ListByUser はユーザーのリマインダーを予定時刻順に返す。
func (r *PostgresReminderRepo) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY remind_at`

	reminders, err := r.queryReminders(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

// ListDue はactive かつ予定時刻がnow以前のリマインダーを古い順に返す。
func (r *PostgresReminderRepo) ListDue(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	reminders, err := r.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE active AND remind_at <= $1
		 ORDER BY remind_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

// Advance は行がまだ active かつ remind_at = prev の場合のみ next/active に更新する。
// 更新できた場合にtrueを返す。同じ回を別の実行が先に確定させていた場合はfalse。
func (r *PostgresReminderRepo) Advance(ctx context.Context, id string, prev, next time.Time, active bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET remind_at = $3, active = $4
		 WHERE id = $1 AND active AND remind_at = $2`,
		id, prev, next, active,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// Release はAdvanceで確定させた回を取り消し、remind_at = prev かつ active に戻す。
// 行がまだ remind_at = claimed のままの場合のみ更新する。
func (r *PostgresReminderRepo) Release(ctx context.Context, id string, claimed, prev time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET remind_at = $3, active = true
		 WHERE id = $1 AND remind_at = $2`,
		id, claimed, prev,
	)
	if err != nil {
		return fmt.Errorf("failed to release reminder: %w", err)
	}
	return nil
}

// Update はメッセージ、予定時刻、繰り返し、アクティブ状態を更新する。
func (r *PostgresReminderRepo) Update(ctx context.Context, rem *model.Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET message = $2, remind_at = $3, repeat = $4, active = $5 WHERE id = $1`,
		rem.ID, rem.Message, rem.Time, string(rem.Repeat), rem.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

// Delete は指定IDのリマインダーを削除する。
func (r *PostgresReminderRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ReminderRepository = (*PostgresReminderRepo)(nil)
