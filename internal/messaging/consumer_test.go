package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shorturl/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func newTestConsumer(sub *mockSubscriber, handler messaging.Handler[testEvent], opts ...messaging.ConsumerOption) *messaging.Consumer[testEvent] {
	return messaging.NewConsumer(sub, "test.topic", handler, zap.NewNop(), opts...)
}

func accept(context.Context, *testEvent) error { return nil }

func TestConsumer_Start(t *testing.T) {
	t.Run("subscribes to its topic", func(t *testing.T) {
		consumer := newTestConsumer(newMockSubscriber(), accept)

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, "test.topic", consumer.Topic())
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("returns subscribe error and can still shut down", func(t *testing.T) {
		consumer := newTestConsumer(&mockSubscriber{subscribeErr: errors.New("no such group")}, accept)

		require.Error(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("decodes event and acks", func(t *testing.T) {
		sub := newMockSubscriber()
		received := make(chan *testEvent, 1)

		consumer := newTestConsumer(sub, func(_ context.Context, event *testEvent) error {
			received <- event

			return nil
		})
		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, uuid.NewString(), &testEvent{ID: "123", Name: "orphan"})
		sub.msgChan <- msg

		assert.Equal(t, "acked", waitResult(t, msg))

		event := <-received
		assert.Equal(t, "123", event.ID)
		assert.Equal(t, "orphan", event.Name)

		_ = consumer.Shutdown()
	})

	t.Run("drops undecodable payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := newTestConsumer(sub, accept)
		require.NoError(t, consumer.Start(context.Background()))

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))

		sub.msgChan <- msg

		assert.Equal(t, "acked", waitResult(t, msg))

		_ = consumer.Shutdown()
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := newTestConsumer(sub, func(context.Context, *testEvent) error {
			return errors.New("handler error")
		})
		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, uuid.NewString(), &testEvent{ID: "123"})

		sub.msgChan <- msg

		assert.Equal(t, "nacked", waitResult(t, msg))

		_ = consumer.Shutdown()
	})

	t.Run("acks permanent failures", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := newTestConsumer(sub, func(context.Context, *testEvent) error {
			return messaging.Permanent(errors.New("bad event"))
		})

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, uuid.NewString(), &testEvent{ID: "123"})

		sub.msgChan <- msg

		assert.Equal(t, "acked", waitResult(t, msg))

		_ = consumer.Shutdown()
	})

	t.Run("drops message after max attempts", func(t *testing.T) {
		sub := newMockSubscriber()

		var calls int

		consumer := newTestConsumer(sub, func(context.Context, *testEvent) error {
			calls++

			return errors.New("still failing")
		}, messaging.WithMaxAttempts(2))

		require.NoError(t, consumer.Start(context.Background()))

		id := uuid.NewString()

		first := newEventMessage(t, id, &testEvent{ID: "1"})
		sub.msgChan <- first

		assert.Equal(t, "nacked", waitResult(t, first))

		redelivered := newEventMessage(t, id, &testEvent{ID: "1"})
		sub.msgChan <- redelivered

		assert.Equal(t, "acked", waitResult(t, redelivered))

		_ = consumer.Shutdown()

		assert.Equal(t, 2, calls)
	})
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")

	assert.NoError(t, messaging.Permanent(nil))
	assert.True(t, messaging.IsPermanent(messaging.Permanent(base)))
	assert.ErrorIs(t, messaging.Permanent(base), base)
	assert.False(t, messaging.IsPermanent(base))
}

func newEventMessage(t *testing.T, id string, event *testEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(id, payload)
}

func waitResult(t *testing.T, msg *message.Message) string {
	t.Helper()

	select {
	case <-msg.Acked():
		return "acked"
	case <-msg.Nacked():
		return "nacked"
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")
	}

	return ""
}
