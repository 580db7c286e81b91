package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodmate/internal/model"
)

// MotivationServiceInterface は励ましメッセージハンドラーが必要とするサービスインターフェース。
type MotivationServiceInterface interface {
	ForMood(ctx context.Context, mood string) (*model.MotivationalMessage, error)
	List(ctx context.Context) ([]*model.MotivationalMessage, error)
	Create(ctx context.Context, moodType, content string) (*model.MotivationalMessage, error)
	Seed(ctx context.Context) (int, error)
}

// MotivationHandler は励ましメッセージカタログのHTTPハンドラー。
type MotivationHandler struct {
	service MotivationServiceInterface
}

// NewMotivationHandler はMotivationHandlerを生成する。
func NewMotivationHandler(service MotivationServiceInterface) *MotivationHandler {
	return &MotivationHandler{service: service}
}

type createMotivationRequest struct {
	MoodType string `json:"moodType"`
	Content  string `json:"content"`
}

// List は登録済みメッセージを全件返す。
// GET /api/motivation
func (h *MotivationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	out := make([]motivationResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMotivationResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// ForMood は気分またはカテゴリに対応するメッセージをランダムに1件返す。
// GET /api/motivation/{mood}
func (h *MotivationHandler) ForMood(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.ForMood(r.Context(), chi.URLParam(r, "mood"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMotivationResponse(msg))
}

// Create はメッセージを追加する。
// POST /api/motivation
func (h *MotivationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMotivationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Create(r.Context(), req.MoodType, req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMotivationResponse(msg))
}

// Seed はカタログが空の場合にデフォルトメッセージを投入する。
// POST /api/motivation/seed
func (h *MotivationHandler) Seed(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Seed(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"inserted": n})
}
