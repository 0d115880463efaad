package websocket

import (
	"sync"
	"time"

	"studio-backend/internal/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	// Feed clients only send control frames.
	readLimit = 4 * 1024
)

type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	RoomID   string
	UserID   string
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func (cl *WSClient) log() *zap.Logger {
	return logger.L().With(
		zap.String("client_id", cl.ID),
		zap.String("room_id", cl.RoomID),
		zap.String("user_id", cl.UserID),
	)
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				cl.log().Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.Conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				cl.log().Warn("feed write failed", zap.Error(err))
				return
			}
		}
	}
}

// readMessage drains the connection so control frames are processed and a
// closed socket is noticed. Data frames are ignored.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			cl.log().Error("feed reader panicked", zap.Any("panic", r))
		}
		close(cl.done)
		hub.Unregister <- cl
		cl.log().Info("feed client disconnected")
	}()

	cl.Conn.SetReadLimit(readLimit)

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				cl.log().Debug("feed read ended", zap.Error(err))
			}
			return
		}
	}
}
