package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/reminder"
)

// ReminderServiceInterface はリマインダーハンドラーが必要とするサービスインターフェース。
type ReminderServiceInterface interface {
	Create(ctx context.Context, userID, message string, at time.Time, repeat string) (*model.Reminder, error)
	List(ctx context.Context, userID string, activeOnly bool) ([]*model.Reminder, error)
	Update(ctx context.Context, userID, id string, p reminder.Patch) (*model.Reminder, error)
	Delete(ctx context.Context, userID, id string) error
}

// ReminderHandler はリマインダー管理のHTTPハンドラー。
type ReminderHandler struct {
	service ReminderServiceInterface
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(service ReminderServiceInterface) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// createReminderRequest のtimeはRFC3339形式で受け取る。
type createReminderRequest struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	Repeat  string    `json:"repeat"`
}

type updateReminderRequest struct {
	Message *string    `json:"message"`
	Time    *time.Time `json:"time"`
	Repeat  *string    `json:"repeat"`
	Active  *bool      `json:"active"`
}

// Create はリマインダーを作成する。
// POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rem, err := h.service.Create(r.Context(), userID, req.Message, req.Time, req.Repeat)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReminderResponse(rem))
}

// List はリマインダー一覧を返す。active=trueでアクティブなもののみに絞り込む。
// GET /api/reminders
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.service.List(r.Context(), userID, activeOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]reminderResponse, 0, len(list))
	for _, rem := range list {
		out = append(out, toReminderResponse(rem))
	}
	writeJSON(w, http.StatusOK, out)
}

// Update はリマインダーを部分更新する。
// PUT /api/reminders/{id}
func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateReminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rem, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), reminder.Patch{
		Message: req.Message,
		Time:    req.Time,
		Repeat:  req.Repeat,
		Active:  req.Active,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// Delete はリマインダーを削除する。
// DELETE /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
