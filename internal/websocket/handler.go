package websocket

import (
	"context"
	"net/http"
	"time"

	"studio-backend/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	hub         *Hub
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

// NewHandler serves the hub's rooms. Upgrades are accepted from the listed
// origins only; an empty list accepts any origin.
func NewHandler(h *Hub, client *redis.Client, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:         h,
		redisClient: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *Handler) Hub() *Hub {
	return h.hub
}

// Relay copies messages published on the room's Redis channel into the hub
// until ctx is done.
func (h *Handler) Relay(ctx context.Context, roomID string) {
	log := logger.L().With(zap.String("channel", roomID))
	if !h.hub.HasRoom(roomID) {
		log.Warn("relay for unknown room")
		return
	}

	subscriber := h.redisClient.Subscribe(ctx, roomID)
	defer subscriber.Close()
	log.Info("subscribed to feed channel")

	ch := subscriber.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				log.Warn("feed channel closed")
				return
			}
			select {
			case h.hub.Broadcast <- &WSMessage{
				RoomID:    roomID,
				Content:   msg.Payload,
				Timestamp: time.Now().Unix(),
			}:
				eventRelayed(roomID)
			case <-ctx.Done():
				return
			}
		}
	}
}

// Join upgrades the request and attaches the connection to roomID.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, roomID, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}

	cl := &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      uuid.NewString(),
		RoomID:  roomID,
		UserID:  userID,
		done:    make(chan struct{}),
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
	cl.log().Info("feed client connected")
	return nil
}
