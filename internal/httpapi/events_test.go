package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"hdi1d/internal/manager"
	"hdi1d/pkg/types"
)

func TestEventsStreamsPublishedEvents(t *testing.T) {
	b := manager.NewBroadcaster()
	srv := httptest.NewServer(NewMux(&mockService{events: b}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	if err != nil { t.Fatalf("dial: %v", err) }
	defer c.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.Subscribers() != 1 { t.Fatalf("subscribers=%d", b.Subscribers()) }

	b.Publish(manager.Event{Name: "ensure_ready", Variant: "fast", Time: time.Unix(100, 0), Fields: map[string]any{"dur_ms": 12}})
	var ev types.Event
	if err := wsjson.Read(ctx, c, &ev); err != nil { t.Fatalf("read: %v", err) }
	if ev.Name != "ensure_ready" || ev.Variant != "fast" || ev.TimeUnix != 100 { t.Fatalf("unexpected event: %+v", ev) }

	c.Close(websocket.StatusNormalClosure, "")
	deadline = time.Now().Add(2 * time.Second)
	for b.Subscribers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.Subscribers() != 0 { t.Fatalf("subscriber not released") }
}

func TestEventsUnavailableWithoutBroadcaster(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusServiceUnavailable { t.Fatalf("status=%d", w.Code) }
}
