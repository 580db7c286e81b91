package mail

import "fmt"

// Email は件名と本文の組。
type Email struct {
	Subject string
	Body    string
}

// ReminderEmail はリマインダー通知メールを組み立てる。
func ReminderEmail(name, message string) Email {
	return Email{
		Subject: "MoodMate Reminder",
		Body:    fmt.Sprintf("Hello %s,\n\n%s\n\nBest regards,\nMoodMate Team", name, message),
	}
}

// MotivationEmail は励ましメッセージのメールを組み立てる。
func MotivationEmail(name, content string) Email {
	return Email{
		Subject: "MoodMate Motivation",
		Body: fmt.Sprintf("Hello %s,\n\n%s\n\nKeep tracking your mood and stay motivated!\n\nBest regards,\nMoodMate Team",
			name, content),
	}
}

// WelcomeEmail は登録完了時のメールを組み立てる。
func WelcomeEmail(name string) Email {
	return Email{
		Subject: "Welcome to MoodMate!",
		Body: fmt.Sprintf("Hello %s,\n\nWelcome to MoodMate! We're excited to have you on board.\n\n"+
			"Start tracking your moods and journaling your thoughts today.\n\nBest regards,\nThe MoodMate Team", name),
	}
}
