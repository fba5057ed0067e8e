package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const eventWriteTimeout = 5 * time.Second

// eventsHandler streams manager and generation events as JSON text frames.
// Client messages are ignored.
func eventsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, unsubscribe := svc.Subscribe(64)
		if ch == nil {
			unsubscribe()
			writeJSONError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		defer unsubscribe()

		opts := &websocket.AcceptOptions{}
		if corsEnabled {
			opts.OriginPatterns = corsAllowedOrigins
		}
		c, err := websocket.Accept(w, r, opts)
		if err != nil {
			// Accept has already written the response.
			return
		}
		defer c.CloseNow()
		eventSubscribers.Inc()
		defer eventSubscribers.Dec()

		ctx, cancel := joinContexts(serverBaseCtx, c.CloseRead(r.Context()))
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				c.Close(websocket.StatusGoingAway, "server shutting down")
				return
			case ev, ok := <-ch:
				if !ok {
					c.Close(websocket.StatusNormalClosure, "")
					return
				}
				wctx, wcancel := context.WithTimeout(ctx, eventWriteTimeout)
				err := wsjson.Write(wctx, c, ev.API())
				wcancel()
				if err != nil {
					if zlog != nil {
						zlog.Debug().Err(err).Msg("events write")
					}
					return
				}
			}
		}
	}
}
