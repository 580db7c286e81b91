package model

import (
	"fmt"
	"time"
)

// Repeat はリマインダーの繰り返し種別を表す。
type Repeat string

const (
	// RepeatNone は1回限りのリマインダー。発火後に非アクティブになる。
	RepeatNone Repeat = "none"
	// RepeatDaily は毎日同時刻に発火するリマインダー。
	RepeatDaily Repeat = "daily"
	// RepeatWeekly は毎週同時刻に発火するリマインダー。
	RepeatWeekly Repeat = "weekly"
)

// ParseRepeat は文字列をRepeatに変換する。空文字はRepeatNoneとして扱う。
func ParseRepeat(s string) (Repeat, error) {
	switch Repeat(s) {
	case "", RepeatNone:
		return RepeatNone, nil
	case RepeatDaily:
		return RepeatDaily, nil
	case RepeatWeekly:
		return RepeatWeekly, nil
	default:
		return "", fmt.Errorf("invalid repeat value: %q", s)
	}
}

// Reminder はユーザーが設定したリマインダーを表す。
type Reminder struct {
	ID        string
	UserID    string
	Message   string
	Time      time.Time
	Repeat    Repeat
	Active    bool
	CreatedAt time.Time
}

// IsDue は指定時刻においてリマインダーが発火対象かどうかを返す。
func (r *Reminder) IsDue(now time.Time) bool {
	return r.Active && !r.Time.After(now)
}

// Next は今回の発火後の次回予定時刻とアクティブ状態を返す。
// 次回時刻は前回の予定時刻を基準に計算し、現在時刻には依存しない。
// 1回限りのリマインダーは時刻を変えずに非アクティブにする。
func (r *Reminder) Next() (time.Time, bool) {
	switch r.Repeat {
	case RepeatDaily:
		return r.Time.Add(24 * time.Hour), true
	case RepeatWeekly:
		return r.Time.Add(7 * 24 * time.Hour), true
	default:
		return r.Time, false
	}
}
