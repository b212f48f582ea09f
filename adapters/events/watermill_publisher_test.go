package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/starnotary/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStarRegistered(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "starnotary.star.registered")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub, "starnotary")
	block := &core.Block{Height: 3, Hash: "0xabc"}
	require.NoError(t, pub.PublishStarRegistered(ctx, "0x1", block))

	select {
	case msg := <-messages:
		var event StarRegisteredEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, StarRegisteredEvent{Address: "0x1", Height: 3, Hash: "0xabc"}, event)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestPublishGrantVerified(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, GrantVerifiedTopic)
	require.NoError(t, err)

	require.NoError(t, NewWatermillPublisher(pubSub, "").PublishGrantVerified(ctx, "0x1", 42))

	select {
	case msg := <-messages:
		var event GrantVerifiedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, GrantVerifiedEvent{Address: "0x1", IssuedAt: 42}, event)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "star.registered", Topic("", StarRegisteredTopic))
	assert.Equal(t, "ns.star.registered", Topic("ns", StarRegisteredTopic))
}
