package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/moodmate/internal/middleware"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/realtime"
)

// ConnRegistry はWebSocket接続の登録先。realtime.Registryが実装する。
type ConnRegistry interface {
	Register(c *realtime.Conn) error
	Unregister(c *realtime.Conn)
}

// WSHandler はリアルタイム通知用のWebSocketエンドポイント。
// トークンはアップグレード前に検証し、失敗した場合は接続を確立しない。
type WSHandler struct {
	validator  middleware.TokenValidator
	registry   ConnRegistry
	marker     realtime.ReadMarker
	logger     *slog.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

// NewWSHandler はWSHandlerを生成する。
// allowedOriginと一致するOrigin、またはOriginヘッダーの無いクライアントのみ受け付ける。
func NewWSHandler(
	validator middleware.TokenValidator,
	registry ConnRegistry,
	marker realtime.ReadMarker,
	logger *slog.Logger,
	allowedOrigin string,
	sendBuffer int,
) *WSHandler {
	return &WSHandler{
		validator:  validator,
		registry:   registry,
		marker:     marker,
		logger:     logger,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || strings.EqualFold(origin, allowedOrigin)
			},
		},
	}
}

// wsToken はクエリのtoken、なければAuthorizationヘッダーからトークンを取り出す。
// ブラウザのWebSocket APIはヘッダーを付与できないためクエリを優先する。
func wsToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return middleware.BearerToken(r)
}

// ServeHTTP は認証後に接続をアップグレードし、切断されるまでブロックする。
// GET /ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := wsToken(r)
	if token == "" {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.validator.ValidateToken(r.Context(), token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが既にエラーレスポンスを書き込んでいる
		h.logger.Warn("WebSocketのアップグレードに失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	c := realtime.NewConn(ws, user.ID, h.sendBuffer)
	if err := h.registry.Register(c); err != nil {
		h.logger.Info("シャットダウン中のため接続を拒否しました", slog.String("user_id", user.ID))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = ws.Close()
		return
	}
	defer h.registry.Unregister(c)

	h.logger.Info("WebSocket接続を確立しました",
		slog.String("user_id", user.ID),
		slog.String("conn_id", c.ID),
	)
	c.Serve(h.marker, h.logger)
	h.logger.Info("WebSocket接続を終了しました",
		slog.String("user_id", user.ID),
		slog.String("conn_id", c.ID),
	)
}
