package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestRegistry() *Registry {
	var buf bytes.Buffer
	return NewRegistry(newTestLogger(&buf), nil)
}

// recvEvent は接続の送信キューからイベントを1件取り出す。
func recvEvent(t *testing.T, c *Conn) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		return ev
	default:
		t.Fatal("送信キューが空")
		return Event{}
	}
}

func TestFanout_NoConnections_IsNoop(t *testing.T) {
	r := newTestRegistry()

	if n := r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n-1"}); n != 0 {
		t.Errorf("Fanout = %d, want 0", n)
	}
	if r.UserCount() != 0 {
		t.Error("ファンアウトでユーザーエントリが作成されてはならない")
	}
}

func TestFanout_TwoConnections_BothReceive(t *testing.T) {
	r := newTestRegistry()
	a := NewConn(nil, "u-1", 4)
	b := NewConn(nil, "u-1", 4)
	other := NewConn(nil, "u-2", 4)
	for _, c := range []*Conn{a, b, other} {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	n := r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n-1", UserID: "u-1", Message: "hi"})
	if n != 2 {
		t.Fatalf("Fanout = %d, want 2", n)
	}

	for _, c := range []*Conn{a, b} {
		ev := recvEvent(t, c)
		if ev.Event != EventNotificationNew {
			t.Errorf("event = %q, want %q", ev.Event, EventNotificationNew)
		}
		var p NotificationPayload
		json.Unmarshal(ev.Data, &p)
		if p.ID != "n-1" || p.Message != "hi" {
			t.Errorf("payload = %+v", p)
		}
	}
	if len(other.send) != 0 {
		t.Error("他ユーザーの接続に配信されてはならない")
	}
}

func TestFanout_FullQueue_DropsOnlyForThatConnection(t *testing.T) {
	r := newTestRegistry()
	slow := NewConn(nil, "u-1", 1)
	fast := NewConn(nil, "u-1", 4)
	r.Register(slow)
	r.Register(fast)

	r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n-1"})
	n := r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n-2"})

	if n != 1 {
		t.Errorf("2回目のFanout = %d, want 1", n)
	}
	if len(fast.send) != 2 {
		t.Errorf("fast queue = %d, want 2", len(fast.send))
	}
	if len(slow.send) != 1 {
		t.Errorf("slow queue = %d, want 1", len(slow.send))
	}
}

func TestFanout_ClosedConnection_NotQueued(t *testing.T) {
	r := newTestRegistry()
	c := NewConn(nil, "u-1", 4)
	r.Register(c)
	c.Close()

	if n := r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n-1"}); n != 0 {
		t.Errorf("Fanout = %d, want 0", n)
	}
}

func TestUnregister_DropsEmptyUserEntry(t *testing.T) {
	r := newTestRegistry()
	a := NewConn(nil, "u-1", 4)
	b := NewConn(nil, "u-1", 4)
	r.Register(a)
	r.Register(b)

	r.Unregister(a)
	if got := r.ConnectionCount("u-1"); got != 1 {
		t.Errorf("ConnectionCount = %d, want 1", got)
	}

	r.Unregister(b)
	if r.UserCount() != 0 {
		t.Error("接続が無くなったユーザーのエントリは削除されるべき")
	}

	// 二重解除は無視される
	r.Unregister(b)
	if r.UserCount() != 0 {
		t.Error("二重解除でエントリが復活してはならない")
	}
}

func TestRegister_DuplicateIsIgnored(t *testing.T) {
	r := newTestRegistry()
	c := NewConn(nil, "u-1", 4)
	r.Register(c)
	r.Register(c)

	if got := r.ConnectionCount("u-1"); got != 1 {
		t.Errorf("ConnectionCount = %d, want 1", got)
	}
	r.Unregister(c)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestRegister_AfterShutdown_Rejected(t *testing.T) {
	r := newTestRegistry()
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if err := r.Register(NewConn(nil, "u-1", 4)); err != ErrRegistryClosed {
		t.Errorf("err = %v, want ErrRegistryClosed", err)
	}
}

func TestShutdown_WaitsForUnregister(t *testing.T) {
	r := newTestRegistry()
	c := NewConn(nil, "u-1", 4)
	r.Register(c)

	go func() {
		<-c.done
		r.Unregister(c)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if r.UserCount() != 0 {
		t.Error("シャットダウン後に接続が残っている")
	}
}

func TestShutdown_TimesOut(t *testing.T) {
	r := newTestRegistry()
	r.Register(NewConn(nil, "u-1", 4))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestCloseUser_ClosesOnlyThatUser(t *testing.T) {
	r := newTestRegistry()
	a := NewConn(nil, "u-1", 4)
	b := NewConn(nil, "u-2", 4)
	r.Register(a)
	r.Register(b)

	r.CloseUser("u-1")

	select {
	case <-a.done:
	default:
		t.Error("u-1 の接続がクローズされていない")
	}
	select {
	case <-b.done:
		t.Error("u-2 の接続はクローズされてはならない")
	default:
	}
}

func TestRegistry_ConcurrentRegisterAndFanout(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewConn(nil, "u-1", 64)
			r.Register(c)
			r.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			r.Fanout("u-1", EventNotificationNew, NotificationPayload{ID: "n"})
		}()
	}
	wg.Wait()

	if r.UserCount() != 0 {
		t.Errorf("UserCount = %d, want 0", r.UserCount())
	}
}
