package model

import "time"

// MoodType は気分を3分類した感情カテゴリを表す。
type MoodType string

const (
	MoodTypePositive MoodType = "positive"
	MoodTypeNeutral  MoodType = "neutral"
	MoodTypeNegative MoodType = "negative"
)

// MotivationalMessage は気分カテゴリごとの励ましメッセージを表す。
type MotivationalMessage struct {
	ID        string
	MoodType  MoodType
	Content   string
	CreatedAt time.Time
}

// moodTypes は記録可能な気分とカテゴリの対応表。
var moodTypes = map[string]MoodType{
	"happy":   MoodTypePositive,
	"excited": MoodTypePositive,
	"calm":    MoodTypeNeutral,
	"neutral": MoodTypeNeutral,
	"sad":     MoodTypeNegative,
	"anxious": MoodTypeNegative,
	"angry":   MoodTypeNegative,
}

// MoodTypeOf は気分をカテゴリに分類する。未知の気分はneutralになる。
func MoodTypeOf(mood string) MoodType {
	if t, ok := moodTypes[mood]; ok {
		return t
	}
	return MoodTypeNeutral
}

// IsValidMood は記録可能な気分かどうかを返す。
func IsValidMood(mood string) bool {
	_, ok := moodTypes[mood]
	return ok
}

// ParseMoodType は文字列がカテゴリ名であればMoodTypeとして返す。
func ParseMoodType(s string) (MoodType, bool) {
	switch MoodType(s) {
	case MoodTypePositive, MoodTypeNeutral, MoodTypeNegative:
		return MoodType(s), true
	default:
		return "", false
	}
}
