package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/moodmate/internal/model"
)

// MoodServiceInterface は気分記録ハンドラーが必要とするサービスインターフェース。
type MoodServiceInterface interface {
	Record(ctx context.Context, userID, mood, note string) (*model.MoodEntry, error)
	List(ctx context.Context, userID string, limit int) ([]*model.MoodEntry, error)
}

// MoodHandler は気分記録のHTTPハンドラー。
type MoodHandler struct {
	service MoodServiceInterface
}

// NewMoodHandler はMoodHandlerを生成する。
func NewMoodHandler(service MoodServiceInterface) *MoodHandler {
	return &MoodHandler{service: service}
}

type recordMoodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note"`
}

// Record は気分を記録する。
// POST /api/moods
func (h *MoodHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req recordMoodRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.service.Record(r.Context(), userID, req.Mood, req.Note)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMoodResponse(entry))
}

// List は気分記録を新しい順に返す。limitが不正な場合はデフォルト件数になる。
// GET /api/moods
func (h *MoodHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]moodResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMoodResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}
