package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/moodmate/internal/model"
)

// PostgresMotivationRepo はPostgreSQLを使用した励ましメッセージリポジトリ。
// シード投入にトランザクションを使うため*sql.DBを保持する。
type PostgresMotivationRepo struct {
	db *sql.DB
}

// NewPostgresMotivationRepo はPostgresMotivationRepoを生成する。
func NewPostgresMotivationRepo(db *sql.DB) *PostgresMotivationRepo {
	return &PostgresMotivationRepo{db: db}
}

func (r *PostgresMotivationRepo) query(ctx context.Context, query string, args ...any) ([]*model.MotivationalMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*model.MotivationalMessage
	for rows.Next() {
		m := &model.MotivationalMessage{}
		var moodType string
		if err := rows.Scan(&m.ID, &moodType, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.MoodType = model.MoodType(moodType)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListByMoodType は指定カテゴリのメッセージを返す。
func (r *PostgresMotivationRepo) ListByMoodType(ctx context.Context, moodType model.MoodType) ([]*model.MotivationalMessage, error) {
	msgs, err := r.query(ctx,
		`SELECT id, mood_type, content, created_at FROM motivational_messages
		 WHERE mood_type = $1 ORDER BY created_at`,
		string(moodType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list motivational messages: %w", err)
	}
	return msgs, nil
}

// ListAll は全メッセージをカテゴリ順に返す。
func (r *PostgresMotivationRepo) ListAll(ctx context.Context) ([]*model.MotivationalMessage, error) {
	msgs, err := r.query(ctx,
		`SELECT id, mood_type, content, created_at FROM motivational_messages
		 ORDER BY mood_type, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list motivational messages: %w", err)
	}
	return msgs, nil
}

// Create はメッセージを作成する。
func (r *PostgresMotivationRepo) Create(ctx context.Context, m *model.MotivationalMessage) error {
	if err := insertMotivation(ctx, r.db, m); err != nil {
		return fmt.Errorf("failed to create motivational message: %w", err)
	}
	return nil
}

// SeedIfEmpty はテーブルが空の場合のみmsgsを同一トランザクションで登録する。
// 既にメッセージが存在する場合は何もせず0を返す。
func (r *PostgresMotivationRepo) SeedIfEmpty(ctx context.Context, msgs []*model.MotivationalMessage) (int, error) {
	inserted := 0
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM motivational_messages`).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, m := range msgs {
			if err := insertMotivation(ctx, tx, m); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed motivational messages: %w", err)
	}
	return inserted, nil
}

func insertMotivation(ctx context.Context, db DBTX, m *model.MotivationalMessage) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO motivational_messages (id, mood_type, content, created_at) VALUES ($1, $2, $3, $4)`,
		m.ID, string(m.MoodType), m.Content, m.CreatedAt,
	)
	return err
}

// compile-time interface check
var _ MotivationRepository = (*PostgresMotivationRepo)(nil)
