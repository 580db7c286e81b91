package motivation

import "github.com/hitoshi/moodmate/internal/model"

// defaultMessages はシード時に登録する初期メッセージ。
var defaultMessages = []struct {
	moodType model.MoodType
	content  string
}{
	{model.MoodTypePositive, "🌟 Keep shining! Your positive energy is contagious!"},
	{model.MoodTypePositive, "✨ Amazing! You're doing great. Keep up the good vibes!"},
	{model.MoodTypePositive, "🎉 Your happiness is inspiring! Share that smile with the world!"},
	{model.MoodTypePositive, "💫 You're radiating positivity! Keep spreading that joy!"},
	{model.MoodTypePositive, "🌈 What a wonderful mood! Remember this feeling!"},

	{model.MoodTypeNeutral, "🌿 Balance is beautiful. Take time to appreciate the calm."},
	{model.MoodTypeNeutral, "☁️ Steady and stable. You're doing just fine."},
	{model.MoodTypeNeutral, "🍃 Sometimes neutral is exactly what we need. Be present."},
	{model.MoodTypeNeutral, "🌊 Riding the waves of life with grace. Keep going."},
	{model.MoodTypeNeutral, "🕊️ Peace in the ordinary. You're exactly where you need to be."},

	{model.MoodTypeNegative, "💪 Tough times don't last, but tough people do. You've got this!"},
	{model.MoodTypeNegative, "🌱 Every storm runs out of rain. Better days are coming."},
	{model.MoodTypeNegative, "🤗 It's okay to not be okay. Be gentle with yourself today."},
	{model.MoodTypeNegative, "🌅 This feeling is temporary. You're stronger than you know."},
	{model.MoodTypeNegative, "💙 Take a deep breath. You're doing better than you think."},
	{model.MoodTypeNegative, "🌟 Even the darkest night will end and the sun will rise."},
	{model.MoodTypeNegative, "🫂 You're not alone. Reach out if you need support."},
}
