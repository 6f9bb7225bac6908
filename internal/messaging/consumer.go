package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is how many times a message is handled before it is dropped.
const DefaultMaxAttempts = 5

// Handler processes a single event. Handlers are synchronous and easy to test.
type Handler[T any] func(ctx context.Context, event *T) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The message is acked and dropped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError

	return errors.As(err, &p)
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	maxAttempts int
}

// WithMaxAttempts bounds redeliveries of a failing message. Values below one
// are ignored.
func WithMaxAttempts(n int) ConsumerOption {
	return func(o *consumerOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Consumer subscribes to a topic and processes messages with a typed handler.
type Consumer[T any] struct {
	subscriber  message.Subscriber
	topic       string
	handler     Handler[T]
	logger      *zap.Logger
	maxAttempts int
	cancel      context.CancelFunc
	done        chan struct{}

	mu       sync.Mutex
	attempts map[string]int
}

// NewConsumer creates a new generic consumer for a specific event type.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	o := consumerOptions{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}

	return &Consumer[T]{
		subscriber:  subscriber,
		topic:       topic,
		handler:     handler,
		logger:      logger.With(zap.String("topic", topic)),
		maxAttempts: o.maxAttempts,
		done:        make(chan struct{}),
		attempts:    make(map[string]int),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start begins consuming messages from the topic.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.cancel()
		close(c.done)

		return err
	}

	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handleMessage(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(
		zap.String("messageId", msg.UUID),
		zap.String("correlationId", middleware.MessageCorrelationID(msg)),
	)

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Redelivering a malformed payload cannot succeed.
		logger.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return
	}

	err := c.handler(ctx, &event)
	if err == nil {
		c.forget(msg.UUID)
		msg.Ack()
		logger.Debug("processed event")

		return
	}

	if IsPermanent(err) {
		c.forget(msg.UUID)
		logger.Error("dropping event after permanent failure", zap.Error(err))
		msg.Ack()

		return
	}

	attempt := c.attempt(msg.UUID)
	if attempt >= c.maxAttempts {
		c.forget(msg.UUID)
		logger.Error("dropping event after max attempts",
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		msg.Ack()

		return
	}

	logger.Warn("failed to handle event",
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
	msg.Nack()
}

func (c *Consumer[T]) attempt(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts[id]++

	return c.attempts[id]
}

func (c *Consumer[T]) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.attempts, id)
}

// Shutdown stops the consumer and waits for in-flight messages to complete.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}

	<-c.done

	return nil
}
