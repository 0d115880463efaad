package websocket

// Room groups the connections that follow one Redis channel.
type Room struct {
	ID      string
	Clients map[string]*WSClient
}

// WSMessage is what a feed client receives. Content is the raw JSON payload
// published on the room's channel.
type WSMessage struct {
	RoomID    string `json:"channel"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}
