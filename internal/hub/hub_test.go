package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishangMittal/PlayMyJam/internal/config"
)

func newTestClient(id, room string, buffer int) *Client {
	return NewClient(id, room, nil, config.WebSocketConfig{SendBuffer: buffer}, zerolog.Nop())
}

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg, ok := <-c.Outbox():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestHub_JoinLeaveSize(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", "ROOM01", 8)
	b := newTestClient("b", "ROOM01", 8)

	assert.Equal(t, 0, h.Size("ROOM01"))

	size, err := h.Join(a, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	size, err = h.Join(b, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.Equal(t, []string{"ROOM01"}, h.Rooms())

	size, removed := h.Leave(a, nil)
	assert.True(t, removed)
	assert.Equal(t, 1, size)

	size, removed = h.Leave(a, nil)
	assert.False(t, removed)
	assert.Equal(t, 1, size)

	size, removed = h.Leave(b, nil)
	assert.True(t, removed)
	assert.Equal(t, 0, size)
	assert.Empty(t, h.Rooms())
	assert.Equal(t, 0, h.Size("ROOM01"))
}

func TestHub_ConcurrentMembership(t *testing.T) {
	h := NewHub()
	const rooms, perRoom = 8, 50

	clients := make([]*Client, 0, rooms*perRoom)
	for r := 0; r < rooms; r++ {
		for i := 0; i < perRoom; i++ {
			clients = append(clients, newTestClient(fmt.Sprintf("c-%d-%d", r, i), fmt.Sprintf("ROOM%02d", r), 4))
		}
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			_, err := h.Join(c, nil, nil)
			assert.NoError(t, err)
		}(c)
	}
	wg.Wait()

	for r := 0; r < rooms; r++ {
		assert.Equal(t, perRoom, h.Size(fmt.Sprintf("ROOM%02d", r)))
	}
	assert.Equal(t, rooms*perRoom, h.ClientCount())

	// Remove every other client, twice each, concurrently with broadcasts.
	for i, c := range clients {
		if i%2 == 0 {
			continue
		}
		wg.Add(3)
		go func(c *Client) { defer wg.Done(); h.Leave(c, nil) }(c)
		go func(c *Client) { defer wg.Done(); h.Leave(c, nil) }(c)
		go func(room string) { defer wg.Done(); h.BroadcastRaw(room, []byte(`{}`)) }(c.RoomCode)
	}
	wg.Wait()

	for r := 0; r < rooms; r++ {
		assert.Equal(t, perRoom/2, h.Size(fmt.Sprintf("ROOM%02d", r)))
	}
}

func TestHub_GreetingPrecedesBroadcasts(t *testing.T) {
	h := NewHub()
	first := newTestClient("first", "ROOM01", 8)

	greet := func(size int) interface{} {
		return map[string]interface{}{"type": "initial_state", "activeUsers": size}
	}
	announce := func(size int) interface{} {
		return map[string]interface{}{"type": "active_users_update", "count": size}
	}

	_, err := h.Join(first, greet, announce)
	require.NoError(t, err)

	second := newTestClient("second", "ROOM01", 8)
	_, err = h.Join(second, greet, announce)
	require.NoError(t, err)

	msgs := drain(first)
	require.Len(t, msgs, 3)
	assert.JSONEq(t, `{"type":"initial_state","activeUsers":1}`, msgs[0])
	assert.JSONEq(t, `{"type":"active_users_update","count":1}`, msgs[1])
	assert.JSONEq(t, `{"type":"active_users_update","count":2}`, msgs[2])

	msgs = drain(second)
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"type":"initial_state","activeUsers":2}`, msgs[0])
	assert.JSONEq(t, `{"type":"active_users_update","count":2}`, msgs[1])

	size, removed := h.Leave(second, announce)
	assert.True(t, removed)
	assert.Equal(t, 1, size)
	assert.Equal(t, []string{`{"count":1,"type":"active_users_update"}`}, drain(first))
	assert.Empty(t, drain(second))
}

func TestHub_BroadcastIsolationAndOrder(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", "ROOM01", 16)
	b := newTestClient("b", "ROOM01", 16)
	other := newTestClient("x", "ROOM02", 16)
	for _, c := range []*Client{a, b, other} {
		_, err := h.Join(c, nil, nil)
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		n, err := h.Broadcast("ROOM01", map[string]int{"seq": i})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}

	for _, c := range []*Client{a, b} {
		msgs := drain(c)
		require.Len(t, msgs, 5)
		for i, m := range msgs {
			var got map[string]int
			require.NoError(t, json.Unmarshal([]byte(m), &got))
			assert.Equal(t, i, got["seq"])
		}
	}
	assert.Empty(t, drain(other))

	assert.Equal(t, 0, h.BroadcastRaw("NOBODY", []byte(`{}`)))
}

func TestHub_BroadcastToleratesClosedAndSlowClients(t *testing.T) {
	h := NewHub()
	healthy := newTestClient("ok", "ROOM01", 8)
	closed := newTestClient("closed", "ROOM01", 8)
	slow := newTestClient("slow", "ROOM01", 1)
	for _, c := range []*Client{healthy, closed, slow} {
		_, err := h.Join(c, nil, nil)
		require.NoError(t, err)
	}

	closed.Close()
	require.NoError(t, slow.Enqueue([]byte(`"filler"`)))

	n := h.BroadcastRaw("ROOM01", []byte(`{"type":"new_request"}`))
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{`{"type":"new_request"}`}, drain(healthy))

	assert.True(t, slow.Closed())
	assert.ErrorIs(t, slow.Enqueue([]byte(`{}`)), ErrClientClosed)

	// Membership is only released by Leave.
	assert.Equal(t, 3, h.Size("ROOM01"))
}

func TestHub_TakeDirty(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", "ROOM01", 1)
	b := newTestClient("b", "ROOM02", 1)

	_, _ = h.Join(a, nil, nil)
	_, _ = h.Join(b, nil, nil)
	h.Leave(a, nil)

	assert.Equal(t, []string{"ROOM01", "ROOM02"}, h.TakeDirty())
	assert.Empty(t, h.TakeDirty())

	h.Leave(a, nil)
	assert.Empty(t, h.TakeDirty())
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	a := newTestClient("a", "ROOM01", 1)
	b := newTestClient("b", "ROOM02", 1)
	_, _ = h.Join(a, nil, nil)
	_, _ = h.Join(b, nil, nil)

	h.CloseAll()
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := newTestClient("a", "ROOM01", 1)
	c.Close()
	c.Close()
	c.CloseWith(4000, "again")
	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.SendMessage(map[string]string{"a": "b"}), ErrClientClosed)
}
