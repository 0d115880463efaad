package websocket

import (
	"context"
	"sync"
)

// Hub owns the rooms. Only the Run goroutine mutates room membership; Rooms
// reads go through the mutex.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage
}

// NewHub creates a hub with a fixed set of rooms.
func NewHub(roomIDs ...string) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room, len(roomIDs)),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
	}
	for _, id := range roomIDs {
		h.rooms[id] = &Room{ID: id, Clients: make(map[string]*WSClient)}
	}
	return h
}

func (h *Hub) HasRoom(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[id]
	return ok
}

func (h *Hub) Rooms() []RoomRes {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomRes, 0, len(h.rooms))
	for _, room := range h.rooms {
		out = append(out, RoomRes{ID: room.ID, Clients: len(room.Clients)})
	}
	return out
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			if ok {
				room.Clients[client.ID] = client
			}
			h.mu.Unlock()
			if !ok {
				close(client.Message)
				continue
			}
			subscriberJoined(client.RoomID)

		case client := <-h.Unregister:
			h.mu.Lock()
			room, ok := h.rooms[client.RoomID]
			removed := false
			if ok {
				if current, exists := room.Clients[client.ID]; exists && current == client {
					delete(room.Clients, client.ID)
					removed = true
				}
			}
			h.mu.Unlock()
			if removed {
				close(client.Message)
				subscriberLeft(client.RoomID, leftClosed)
			}

		case message := <-h.Broadcast:
			h.mu.Lock()
			room, ok := h.rooms[message.RoomID]
			if !ok {
				h.mu.Unlock()
				continue
			}
			delivered := 0
			for id, client := range room.Clients {
				select {
				case client.Message <- message:
					delivered++
				default:
					// Slow consumers are dropped rather than blocking the feed.
					close(client.Message)
					delete(room.Clients, id)
					subscriberLeft(room.ID, leftSlow)
				}
			}
			h.mu.Unlock()
			if delivered > 0 {
				eventsDelivered(room.ID, delivered)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for id, client := range room.Clients {
			close(client.Message)
			delete(room.Clients, id)
			subscriberLeft(room.ID, leftShutdown)
		}
	}
}
