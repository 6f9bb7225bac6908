package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/shorturl/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// step records Start and Shutdown calls of a group member in a shared log.
type step struct {
	name        string
	log         *[]string
	startErr    error
	shutdownErr error
}

func (s *step) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}

	*s.log = append(*s.log, "start "+s.name)

	return nil
}

func (s *step) Shutdown() error {
	*s.log = append(*s.log, "stop "+s.name)

	return s.shutdownErr
}

func newGroup(members ...*step) (*messaging.ConsumerGroup, *mockSubscriber) {
	sub := newMockSubscriber()
	group := messaging.NewConsumerGroup(sub, zap.NewNop())

	for _, m := range members {
		group.Add(m)
	}

	return group, sub
}

func TestConsumerGroup_Start(t *testing.T) {
	t.Run("starts members in order", func(t *testing.T) {
		var log []string

		group, _ := newGroup(&step{name: "consumer", log: &log}, &step{name: "sweeper", log: &log})

		require.NoError(t, group.Start(context.Background()))
		assert.Equal(t, []string{"start consumer", "start sweeper"}, log)
	})

	t.Run("stops started members when one fails", func(t *testing.T) {
		var log []string

		startErr := errors.New("subscribe refused")
		group, _ := newGroup(
			&step{name: "a", log: &log},
			&step{name: "b", log: &log},
			&step{name: "c", log: &log, startErr: startErr},
		)

		err := group.Start(context.Background())

		require.ErrorIs(t, err, startErr)
		assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
	})
}

func TestConsumerGroup_Shutdown(t *testing.T) {
	t.Run("stops members in reverse order and closes subscriber", func(t *testing.T) {
		var log []string

		group, sub := newGroup(&step{name: "consumer", log: &log}, &step{name: "sweeper", log: &log})
		require.NoError(t, group.Start(context.Background()))

		require.NoError(t, group.Shutdown())
		assert.Equal(t, []string{"start consumer", "start sweeper", "stop sweeper", "stop consumer"}, log)
		assert.True(t, sub.closed)
	})

	t.Run("joins every failure", func(t *testing.T) {
		var log []string

		first := errors.New("consumer stuck")
		second := errors.New("sweeper stuck")
		group, _ := newGroup(
			&step{name: "consumer", log: &log, shutdownErr: first},
			&step{name: "sweeper", log: &log, shutdownErr: second},
		)
		require.NoError(t, group.Start(context.Background()))

		err := group.Shutdown()

		require.ErrorIs(t, err, first)
		require.ErrorIs(t, err, second)
		assert.Contains(t, log, "stop consumer")
	})
}
