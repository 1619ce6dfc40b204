package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomActivityChannel(t *testing.T) {
	ch := RoomActivityChannel("DJ7X9K")
	assert.Equal(t, "playmyjam:room:DJ7X9K:activity", ch)

	room, err := roomFromChannel(ch)
	require.NoError(t, err)
	assert.Equal(t, "DJ7X9K", room)
}

func TestRoomFromChannel_Invalid(t *testing.T) {
	for _, ch := range []string{"", "playmyjam", "playmyjam:room::activity", "a:b:c:d", "a:room:b"} {
		_, err := roomFromChannel(ch)
		assert.Error(t, err, ch)
	}
}

func TestNewPublisher_Noop(t *testing.T) {
	p, err := NewPublisher(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), "x", &Event{}))
	assert.NoError(t, p.Close())

	_, err = NewPublisher(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := RoomActivityChannel("ROOM01")
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisherFromClient(client)
	evt, err := NewEvent(EventRequestSubmitted, "ROOM01", RequestSubmittedPayload{
		RequestID: "01J0000000000000000000000",
		Song:      "Dance the Night",
		Artist:    "Dua Lipa",
	})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, channel, evt))

	select {
	case msg := <-sub.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, EventRequestSubmitted, got.Type)
		assert.Equal(t, "ROOM01", got.RoomID)

		var payload RequestSubmittedPayload
		require.NoError(t, got.UnmarshalPayload(&payload))
		assert.Equal(t, "Dance the Night", payload.Song)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}

	// Borrowed clients survive Close.
	require.NoError(t, pub.Close())
	assert.NoError(t, client.Ping(ctx).Err())
}
