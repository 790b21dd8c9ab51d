package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/akvekariya/AIChatBot/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisRoomChannel = "chat_room_events"

// Hub tracks which connections are in which chat rooms and fans room
// broadcasts out to them. With Redis configured it also relays broadcasts
// across instances so two devices of the same user can share a room through
// different pods.
type Hub struct {
	// chat room membership: ChatID -> set of clients
	rooms map[uuid.UUID]map[*Client]bool

	// live connections; a client leaves this set exactly once, when its
	// send channel is closed
	clients map[*Client]bool

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instanceID lets the subscriber skip messages this instance published,
	// local delivery already happened.
	instanceID string

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		clients:    make(map[*Client]bool),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run pumps the cross-instance relay. Connection lifecycle is handled
// synchronously under the hub mutex, so without Redis there is nothing to do.
func (h *Hub) Run() {
	if h.rdb != nil {
		h.subscribeToRedis()
	}
}

// Register announces a new connection to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})
}

// Unregister removes a connection from every room and closes its send
// channel. Both the read pump's deferred teardown and slow-client eviction
// funnel here, so a second call for the same client must be a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for chatID, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	close(client.Send)
	h.mu.Unlock()
	h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserID})
}

// Join adds a client to a chat room. Ownership is checked by the coordinator
// before this is called. A torn-down client cannot re-enter a room.
func (h *Hub) Join(client *Client, chatID uuid.UUID) {
	h.mu.Lock()
	if h.clients[client] {
		if h.rooms[chatID] == nil {
			h.rooms[chatID] = make(map[*Client]bool)
		}
		h.rooms[chatID][client] = true
	}
	h.mu.Unlock()
}

// Leave removes a client from a chat room. A no-op when the client never
// joined.
func (h *Hub) Leave(client *Client, chatID uuid.UUID) {
	h.mu.Lock()
	if members, ok := h.rooms[chatID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
	h.mu.Unlock()
}

// InRoom reports whether the client currently holds room membership.
func (h *Hub) InRoom(client *Client, chatID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[chatID][client]
}

// BroadcastToRoom delivers a frame to every member of a chat room, local and
// remote.
func (h *Hub) BroadcastToRoom(chatID uuid.UUID, data []byte) {
	h.deliverLocal(chatID, data, nil)

	if h.rdb != nil {
		payload, _ := json.Marshal(roomEnvelope{
			Origin:  h.instanceID,
			ChatID:  chatID.String(),
			Message: data,
		})
		h.rdb.Publish(context.Background(), redisRoomChannel, payload)
	}
}

// BroadcastToRoomExcept is BroadcastToRoom minus one local client, used for
// typing relays where the sender already knows.
func (h *Hub) BroadcastToRoomExcept(chatID uuid.UUID, skip *Client, data []byte) {
	h.deliverLocal(chatID, data, skip)

	if h.rdb != nil {
		payload, _ := json.Marshal(roomEnvelope{
			Origin:  h.instanceID,
			ChatID:  chatID.String(),
			Message: data,
		})
		h.rdb.Publish(context.Background(), redisRoomChannel, payload)
	}
}

func (h *Hub) deliverLocal(chatID uuid.UUID, data []byte, skip *Client) {
	h.mu.RLock()
	var stale []*Client
	for client := range h.rooms[chatID] {
		if client == skip {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.Unregister(client)
	}
}

type roomEnvelope struct {
	Origin  string          `json:"origin"`
	ChatID  string          `json:"chat_id"`
	Message json.RawMessage `json:"message"`
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisRoomChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope roomEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if envelope.Origin == h.instanceID {
			continue
		}

		chatID, err := uuid.Parse(envelope.ChatID)
		if err != nil {
			continue
		}
		h.deliverLocal(chatID, envelope.Message, nil)
	}
}
