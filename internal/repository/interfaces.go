// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/moodmate/internal/model"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を示す。
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ListAll は全ユーザーを作成日時順に返す。
	ListAll(ctx context.Context) ([]*model.User, error)
	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
	// UpdateProfile は名前、アバター、テーマを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error
	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、mood_entries、reminders、notificationsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByToken はトークンでセッションを取得する。期限切れでも返す。
	// 見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByToken はトークンに対応するセッションを削除する。
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ReminderRepository はリマインダーの永続化インターフェース。
type ReminderRepository interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Reminder, error)
	// ListByUser はユーザーのリマインダーを予定時刻順に返す。
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error)
	// ListDue はactive かつ予定時刻がnow以前のリマインダーを返す。
	ListDue(ctx context.Context, now time.Time) ([]*model.Reminder, error)
	// Advance は発火済みの回を確定させる条件付き更新を行う。
	// 行がまだ active かつ remind_at = prev の場合のみ next/active に更新し、trueを返す。
	// 別の実行が先に確定させていた場合はfalseを返す。
	Advance(ctx context.Context, id string, prev, next time.Time, active bool) (bool, error)
	// Release はAdvanceで確定させた回を取り消し、次回の実行で再び発火対象にする。
	// 通知の永続化に失敗した回にのみ使う。
	Release(ctx context.Context, id string, claimed, prev time.Time) error
	// Update はメッセージ、予定時刻、繰り返し、アクティブ状態を更新する。
	Update(ctx context.Context, reminder *model.Reminder) error
	Delete(ctx context.Context, id string) error
}

// NotificationRepository は通知の永続化インターフェース。
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// ListByUser はユーザーの通知を新しい順に返す。
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	// MarkRead はユーザー所有の通知を既読にする。該当行が無い場合はfalseを返す。
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	// MarkAllRead はユーザーの未読通知を全て既読にし、更新件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// Delete はユーザー所有の通知を削除する。該当行が無い場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)
	// DeleteReadBefore はcutoffより前に作成された既読通知を削除し、削除件数を返す。
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MoodRepository は気分記録の永続化インターフェース。
type MoodRepository interface {
	Create(ctx context.Context, entry *model.MoodEntry) error
	// ListByUser はユーザーの気分記録を新しい順に最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error)
	// LatestByUser はユーザーの最新の気分記録を返す。記録が無い場合はnilを返す。
	LatestByUser(ctx context.Context, userID string) (*model.MoodEntry, error)
}

// MotivationRepository は励ましメッセージの永続化インターフェース。
type MotivationRepository interface {
	ListByMoodType(ctx context.Context, moodType model.MoodType) ([]*model.MotivationalMessage, error)
	ListAll(ctx context.Context) ([]*model.MotivationalMessage, error)
	Create(ctx context.Context, msg *model.MotivationalMessage) error
	// SeedIfEmpty はテーブルが空の場合のみmsgsを一括登録し、登録件数を返す。
	SeedIfEmpty(ctx context.Context, msgs []*model.MotivationalMessage) (int, error)
}
