package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	inboundTimeout = 5 * time.Second
)

// ReadMarker は notification:read イベントを処理する。
type ReadMarker interface {
	MarkRead(ctx context.Context, userID, notificationID string) error
}

// Conn はユーザーに紐づく1本のWebSocket接続。
// 送信は専用のwriterゴルーチンが送信キューから取り出して行う。
type Conn struct {
	ID     string
	UserID string

	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	finished chan struct{}
}

// NewConn はConnを生成する。bufSizeは送信キューの容量。
func NewConn(ws *websocket.Conn, userID string, bufSize int) *Conn {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Conn{
		ID:       uuid.NewString(),
		UserID:   userID,
		ws:       ws,
		send:     make(chan []byte, bufSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// enqueue は送信キューにメッセージを積む。ブロックしない。
// キューが満杯、または接続がクローズ済みの場合はfalseを返す。
func (c *Conn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close は接続のクローズを要求する。キュー済みのメッセージは送信してから閉じる。
// 複数回呼んでもよい。
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// Serve は接続の読み書きを開始し、接続が閉じるまでブロックする。
func (c *Conn) Serve(marker ReadMarker, logger *slog.Logger) {
	go c.writePump(logger)
	c.readPump(marker, logger)
	c.Close()
	<-c.finished
}

func (c *Conn) readPump(marker ReadMarker, logger *slog.Logger) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket接続が異常終了しました",
					slog.String("conn_id", c.ID),
					slog.String("user_id", c.UserID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		c.handleInbound(data, marker, logger)
	}
}

func (c *Conn) handleInbound(data []byte, marker ReadMarker, logger *slog.Logger) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		logger.Debug("不正なメッセージを無視しました", slog.String("conn_id", c.ID))
		return
	}

	switch ev.Event {
	case EventNotificationRead:
		var ref NotificationRefPayload
		if err := json.Unmarshal(ev.Data, &ref); err != nil || ref.NotificationID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
		defer cancel()
		if err := marker.MarkRead(ctx, c.UserID, ref.NotificationID); err != nil {
			logger.Error("通知の既読化に失敗しました",
				slog.String("user_id", c.UserID),
				slog.String("notification_id", ref.NotificationID),
				slog.String("error", err.Error()),
			)
			return
		}
		msg, err := encodeEvent(EventNotificationUpdated, ref)
		if err != nil {
			return
		}
		c.enqueue(msg)
	default:
		logger.Debug("未対応のイベントを無視しました",
			slog.String("conn_id", c.ID),
			slog.String("event", ev.Event),
		)
	}
}

func (c *Conn) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.finished)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.drain(logger)
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain はクローズ要求時点でキューに残っているメッセージを送信する。
func (c *Conn) drain(logger *slog.Logger) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				logger.Debug("クローズ前の送信に失敗しました",
					slog.String("conn_id", c.ID),
					slog.String("error", err.Error()),
				)
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}
