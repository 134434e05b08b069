package messaging

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error nacks the message so
// the broker redelivers it.
type Handler[T any] func(ctx context.Context, event *T) error

// Stats counts what a consumer did with the messages it received.
type Stats struct {
	Processed uint64
	Failed    uint64
	Dropped   uint64
}

// Consumer decodes JSON messages from one topic into T and passes them to a
// handler. Messages that cannot be decoded are acked and dropped.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}

	processed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
	}
}

// Topic returns the subscribed topic.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Stats returns a snapshot of the message counters.
func (c *Consumer[T]) Stats() Stats {
	return Stats{
		Processed: c.processed.Load(),
		Failed:    c.failed.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// Start subscribes and processes messages in the background until ctx is
// done, the subscription closes, or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		cancel()

		return err
	}

	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer[T]) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.process(ctx, msg)
		}
	}
}

func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(zap.String("messageId", msg.UUID))

	event := new(T)
	if err := json.Unmarshal(msg.Payload, event); err != nil {
		c.dropped.Add(1)
		logger.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.failed.Add(1)
		logger.Warn("event handler failed, requesting redelivery", zap.Error(err))
		msg.Nack()

		return
	}

	c.processed.Add(1)
	msg.Ack()
}

// Shutdown stops the consumer and waits for the message in flight. It is a
// no-op when Start never succeeded.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
