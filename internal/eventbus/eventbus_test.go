package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case m := <-ch:
		m.Ack()
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestMemoryBus_PublishUsesMetadataTopic(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "lantern.round.updated.v1")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"isActive":true}`))
	msg.Metadata.Set(MetadataTopic, "lantern.round.updated.v1")
	require.NoError(t, bus.Publish("", msg))

	got := receive(t, ch)
	assert.Equal(t, msg.UUID, got.UUID)
	assert.JSONEq(t, `{"isActive":true}`, string(got.Payload))
}

func TestMemoryBus_ExplicitTopicOverridesMetadata(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "explicit")
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set(MetadataTopic, "other")
	require.NoError(t, bus.Publish("explicit", msg))

	receive(t, ch)
}

func TestMemoryBus_PublishWithoutTopicFails(t *testing.T) {
	bus := NewInMemoryEventBus(slog.Default())
	defer bus.Close()

	err := bus.Publish("", message.NewMessage("m1", nil))
	assert.ErrorContains(t, err, "no topic")
}

func TestNkeyOption(t *testing.T) {
	kp, err := nkeys.CreateUser()
	require.NoError(t, err)
	seed, err := kp.Seed()
	require.NoError(t, err)

	opt, err := nkeyOption(string(seed))
	require.NoError(t, err)
	assert.NotNil(t, opt)

	_, err = nkeyOption("not-a-seed")
	assert.ErrorContains(t, err, "invalid nkey seed")
}
