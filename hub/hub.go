package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-qr/models"
	"github.com/yeremiapane/restaurant-qr/utils"
)

// Event types
const (
	EventTableUpdate = "table_update"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many messages a client may fall behind before it is dropped.
	sendBuffer = 16
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// TableUpdate is the payload of EventTableUpdate.
type TableUpdate struct {
	TableID     uint   `json:"table_id"`
	TableNumber string `json:"table_number"`
	Status      string `json:"status"`
}

// Hub fans table status changes out to connected staff screens. Each client
// has its own buffered queue drained by a writer goroutine, so a stalled
// screen never blocks the request that changed the table.
type Hub struct {
	clients map[*websocket.Conn]chan []byte
	mutex   sync.Mutex
}

func New() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// Register -> menambahkan connection dan menjalankan writer-nya
func (h *Hub) Register(conn *websocket.Conn) {
	send := make(chan []byte, sendBuffer)
	h.mutex.Lock()
	h.clients[conn] = send
	h.mutex.Unlock()
	go writePump(conn, send)
}

// Unregister -> melepaskan connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.drop(conn)
}

// drop must be called with h.mutex held.
func (h *Hub) drop(conn *websocket.Conn) {
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// TableStatusChanged broadcasts the table's current status.
func (h *Hub) TableStatusChanged(table models.Table) {
	h.Broadcast(Message{
		Event: EventTableUpdate,
		Data: TableUpdate{
			TableID:     table.ID,
			TableNumber: table.TableNumber,
			Status:      table.Status,
		},
	})
}

// Broadcast queues msg for every client without waiting on the network.
// Clients whose queue is full are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("hub: marshal message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, send := range h.clients {
		select {
		case send <- data:
		default:
			utils.InfoLogger.WithFields(logrus.Fields{
				"event":  msg.Event,
				"remote": conn.RemoteAddr().String(),
			}).Info("hub: dropping client that fell behind")
			h.drop(conn)
		}
	}
}

// writePump writes queued messages until the queue is closed or a write
// fails. A failed write closes the conn, which ends the handler's read loop
// and so unregisters the client.
func writePump(conn *websocket.Conn, send <-chan []byte) {
	for data := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.InfoLogger.WithField("remote", conn.RemoteAddr().String()).
				Info("hub: write failed, closing client")
			conn.Close()
			return
		}
	}
}
