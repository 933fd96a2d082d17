package broadcast

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 45 * time.Second
	pongWait     = 90 * time.Second
)

// ServeConn attaches a websocket connection as an observer and pumps
// state pushes until the peer disconnects or ctx is cancelled. A
// failed write drops only this observer.
func ServeConn(ctx context.Context, hub *Hub, conn *websocket.Conn, logger zerolog.Logger) {
	obs := hub.Attach()
	defer hub.Detach(obs)
	defer conn.Close()

	log := logger.With().Str("component", "ws_observer").Str("observer", obs.ID()).Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Reader: consume control frames and client messages; any read
	// error ends the session.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	msgs := make(chan Message)
	go func() {
		defer cancel()
		for {
			m, err := obs.Next(ctx)
			if err != nil {
				return
			}
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Msg("ping failed, dropping observer")
				return
			}
		case m := <-msgs:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug().Err(err).Msg("write failed, dropping observer")
				return
			}
		}
	}
}
