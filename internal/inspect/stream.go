package inspect

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// handleStream upgrades to a WebSocket and pushes all instance states every
// interval until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, done)
}

// readPump drains client messages so control frames are processed, and
// closes done when the connection fails.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, done <-chan struct{}) {
	states := time.NewTicker(s.interval)
	defer states.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if !s.pushStates(conn) {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-states.C:
			if !s.pushStates(conn) {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) pushStates(conn *websocket.Conn) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(s.src.States()); err != nil {
		s.log.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
