package hub

import (
	"encoding/json"
	"errors"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

const shardCount = 32

// Hub is the room registry: room code -> live clients. Membership changes are
// serialised per shard so rooms on different shards never contend.
type Hub struct {
	shards [shardCount]*shard

	dirtyMu sync.Mutex
	dirty   map[string]struct{}
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // roomCode -> clientID -> client
}

func NewHub() *Hub {
	h := &Hub{dirty: make(map[string]struct{})}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[string]map[string]*Client)}
	}
	return h
}

func (h *Hub) shardFor(roomCode string) *shard {
	f := fnv.New32a()
	f.Write([]byte(roomCode))
	return h.shards[f.Sum32()%shardCount]
}

// Join adds client to its room and returns the new room size. Inside the
// critical section greet (if non-nil) is queued to the client alone, then
// announce (if non-nil) is queued to every member. The joiner therefore sees
// its greeting before any broadcast, and announced sizes follow membership order.
func (h *Hub) Join(client *Client, greet, announce func(size int) interface{}) (int, error) {
	s := h.shardFor(client.RoomCode)

	s.mu.Lock()
	clients, ok := s.rooms[client.RoomCode]
	if !ok {
		clients = make(map[string]*Client)
		s.rooms[client.RoomCode] = clients
	}
	clients[client.ID] = client
	client.JoinedAt = time.Now()
	size := len(clients)

	var err error
	if greet != nil {
		err = client.SendMessage(greet(size))
	}
	if announce != nil {
		if data, merr := json.Marshal(announce(size)); merr != nil {
			err = merr
		} else {
			fanout(client.RoomCode, clients, data)
		}
	}
	s.mu.Unlock()

	h.MarkDirty(client.RoomCode)
	return size, err
}

// Leave removes client from its room and queues announce (if non-nil) to the
// remaining members. It reports the remaining size and whether the client was
// a member, so repeated calls are harmless.
func (h *Hub) Leave(client *Client, announce func(size int) interface{}) (int, bool) {
	s := h.shardFor(client.RoomCode)

	s.mu.Lock()
	clients, ok := s.rooms[client.RoomCode]
	if !ok {
		s.mu.Unlock()
		return 0, false
	}
	if _, member := clients[client.ID]; !member {
		size := len(clients)
		s.mu.Unlock()
		return size, false
	}
	delete(clients, client.ID)
	size := len(clients)
	if size == 0 {
		delete(s.rooms, client.RoomCode)
	} else if announce != nil {
		if data, err := json.Marshal(announce(size)); err == nil {
			fanout(client.RoomCode, clients, data)
		}
	}
	s.mu.Unlock()

	h.MarkDirty(client.RoomCode)
	return size, true
}

// Size returns the number of live clients in a room, 0 if absent.
func (h *Hub) Size(roomCode string) int {
	s := h.shardFor(roomCode)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomCode])
}

// Broadcast marshals message once and queues it to every client in the room.
func (h *Hub) Broadcast(roomCode string, message interface{}) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}
	return h.BroadcastRaw(roomCode, data), nil
}

// BroadcastRaw queues data to every client of the room at call time and
// returns how many accepted it.
func (h *Hub) BroadcastRaw(roomCode string, data []byte) int {
	s := h.shardFor(roomCode)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fanout(roomCode, s.rooms[roomCode], data)
}

// fanout must be called with the shard lock held. A client whose buffer is
// full is closed; its read side then runs the normal disconnect.
func fanout(roomCode string, clients map[string]*Client, data []byte) int {
	delivered := 0
	for _, client := range clients {
		err := client.Enqueue(data)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSendBufferFull):
			l := log.L()
			l.Warn().
				Str(log.FieldRoomCode, roomCode).
				Str(log.FieldConnectionID, client.ID).
				Msg("send buffer full, dropping slow client")
			client.CloseWith(websocket.ClosePolicyViolation, "too slow")
		default:
			l := log.L()
			l.Debug().
				Err(err).
				Str(log.FieldRoomCode, roomCode).
				Str(log.FieldConnectionID, client.ID).
				Msg("skipping closed client")
		}
	}
	return delivered
}

// Rooms returns the codes of rooms with at least one live client, sorted.
func (h *Hub) Rooms() []string {
	var codes []string
	for _, s := range h.shards {
		s.mu.RLock()
		for code := range s.rooms {
			codes = append(codes, code)
		}
		s.mu.RUnlock()
	}
	sort.Strings(codes)
	return codes
}

// ClientCount returns the number of live clients across all rooms.
func (h *Hub) ClientCount() int {
	total := 0
	for _, s := range h.shards {
		s.mu.RLock()
		for _, clients := range s.rooms {
			total += len(clients)
		}
		s.mu.RUnlock()
	}
	return total
}

// MarkDirty flags a room for the next presence sync.
func (h *Hub) MarkDirty(roomCode string) {
	h.dirtyMu.Lock()
	h.dirty[roomCode] = struct{}{}
	h.dirtyMu.Unlock()
}

// TakeDirty returns the rooms whose membership changed since the previous
// call and clears the set.
func (h *Hub) TakeDirty() []string {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()

	codes := make([]string, 0, len(h.dirty))
	for code := range h.dirty {
		codes = append(codes, code)
	}
	h.dirty = make(map[string]struct{})
	sort.Strings(codes)
	return codes
}

// CloseAll closes every live client with a going-away frame.
func (h *Hub) CloseAll() {
	for _, s := range h.shards {
		s.mu.RLock()
		for _, clients := range s.rooms {
			for _, client := range clients {
				client.CloseWith(websocket.CloseGoingAway, "server shutting down")
			}
		}
		s.mu.RUnlock()
	}
}
