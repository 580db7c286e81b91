package handler

import (
	"time"

	"github.com/hitoshi/moodmate/internal/model"
)

// 日時はすべてUTCのRFC3339で返す。
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Theme     string `json:"theme"`
	CreatedAt string `json:"createdAt"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Theme:     u.Theme,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

type notificationResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

func toNotificationResponses(list []*model.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, notificationResponse{
			ID:        n.ID,
			UserID:    n.UserID,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: formatTime(n.CreatedAt),
		})
	}
	return out
}

type reminderResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Time      string `json:"time"`
	Repeat    string `json:"repeat"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
}

func toReminderResponse(r *model.Reminder) reminderResponse {
	return reminderResponse{
		ID:        r.ID,
		Message:   r.Message,
		Time:      formatTime(r.Time),
		Repeat:    string(r.Repeat),
		Active:    r.Active,
		CreatedAt: formatTime(r.CreatedAt),
	}
}

type moodResponse struct {
	ID        string `json:"id"`
	Mood      string `json:"mood"`
	MoodType  string `json:"moodType"`
	Note      string `json:"note"`
	CreatedAt string `json:"createdAt"`
}

func toMoodResponse(m *model.MoodEntry) moodResponse {
	return moodResponse{
		ID:        m.ID,
		Mood:      m.Mood,
		MoodType:  string(model.MoodTypeOf(m.Mood)),
		Note:      m.Note,
		CreatedAt: formatTime(m.CreatedAt),
	}
}

type motivationResponse struct {
	ID       string `json:"id"`
	MoodType string `json:"moodType"`
	Content  string `json:"content"`
}

func toMotivationResponse(m *model.MotivationalMessage) motivationResponse {
	return motivationResponse{
		ID:       m.ID,
		MoodType: string(m.MoodType),
		Content:  m.Content,
	}
}
