package model

import "time"

// Notification はユーザーに配信された通知の永続レコードを表す。
// 配信パイプラインのみが作成し、作成後は既読フラグ以外変更しない。
type Notification struct {
	ID        string
	UserID    string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// MoodEntry はユーザーが記録した気分を表す。
type MoodEntry struct {
	ID        string
	UserID    string
	Mood      string
	Note      string
	CreatedAt time.Time
}
