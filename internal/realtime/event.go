// Package realtime はWebSocket接続の管理とユーザー単位のイベント配信を提供する。
package realtime

import (
	"encoding/json"
	"fmt"
)

// イベント名
const (
	EventNotificationNew     = "notification:new"
	EventNotificationUpdated = "notification:updated"
	EventNotificationRead    = "notification:read"
)

// Event はWebSocket上でやり取りするメッセージの形式。
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NotificationPayload は notification:new のペイロード。
type NotificationPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// NotificationRefPayload は notification:read / notification:updated のペイロード。
type NotificationRefPayload struct {
	NotificationID string `json:"notificationId"`
}

// encodeEvent はイベント名とペイロードを送信用のJSONに変換する。
func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Marshal(Event{Event: event, Data: data})
}
