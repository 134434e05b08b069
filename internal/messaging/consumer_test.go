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
	"github.com/serroba/quota-gate-go/internal/audit"
	"github.com/serroba/quota-gate-go/internal/messaging"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgs         chan *message.Message
	subscribeErr error
	topics       []string

	mu     sync.Mutex
	closed bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgs: make(chan *message.Message, 10)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	m.topics = append(m.topics, topic)

	return m.msgs, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgs)
	}

	return nil
}

func quotaMessage(t *testing.T, outcome audit.Outcome) (*message.Message, *audit.QuotaEvent) {
	t.Helper()

	policy := ratelimit.MustPolicy("python_code", 3, 10*time.Second)
	event := audit.NewQuotaEvent(policy, "203.0.113.7", outcome, time.Now())

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload), event
}

type ackResult int

const (
	acked ackResult = iota
	nacked
)

func waitAck(t *testing.T, msg *message.Message) ackResult {
	t.Helper()

	select {
	case <-msg.Acked():
		return acked
	case <-msg.Nacked():
		return nacked
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return -1
	}
}

func startQuotaConsumer(
	t *testing.T,
	sub *mockSubscriber,
	handler messaging.Handler[audit.QuotaEvent],
) *messaging.Consumer[audit.QuotaEvent] {
	t.Helper()

	consumer := messaging.NewConsumer(sub, audit.TopicQuota, handler, zap.NewNop())
	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(func() { _ = consumer.Shutdown() })

	return consumer
}

func TestConsumer_Start(t *testing.T) {
	t.Run("subscribes to its topic", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := startQuotaConsumer(t, sub, func(context.Context, *audit.QuotaEvent) error { return nil })

		assert.Equal(t, audit.TopicQuota, consumer.Topic())
		assert.Equal(t, []string{audit.TopicQuota}, sub.topics)
	})

	t.Run("returns subscribe error", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("stream unavailable")}
		consumer := messaging.NewConsumer(sub, audit.TopicQuota,
			func(context.Context, *audit.QuotaEvent) error { return nil }, zap.NewNop())

		err := consumer.Start(context.Background())

		require.ErrorContains(t, err, "stream unavailable")
		require.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_Process(t *testing.T) {
	t.Run("decodes and acks quota events", func(t *testing.T) {
		sub := newMockSubscriber()
		received := make(chan *audit.QuotaEvent, 1)

		consumer := startQuotaConsumer(t, sub, func(_ context.Context, e *audit.QuotaEvent) error {
			received <- e

			return nil
		})

		msg, sent := quotaMessage(t, audit.OutcomeRejected)
		sub.msgs <- msg

		require.Equal(t, acked, waitAck(t, msg))

		got := <-received
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "python_code", got.Endpoint)
		assert.Equal(t, audit.OutcomeRejected, got.Outcome)
		assert.Equal(t, int64(3), got.MaxRequests)
		assert.Equal(t, messaging.Stats{Processed: 1}, consumer.Stats())
	})

	t.Run("acks and drops undecodable payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		called := false

		consumer := startQuotaConsumer(t, sub, func(context.Context, *audit.QuotaEvent) error {
			called = true

			return nil
		})

		msg := message.NewMessage(uuid.NewString(), []byte("{not json"))
		sub.msgs <- msg

		require.Equal(t, acked, waitAck(t, msg))
		assert.False(t, called)
		assert.Equal(t, messaging.Stats{Dropped: 1}, consumer.Stats())
	})

	t.Run("nacks when the handler fails", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := startQuotaConsumer(t, sub, func(context.Context, *audit.QuotaEvent) error {
			return errors.New("database down")
		})

		msg, _ := quotaMessage(t, audit.OutcomeUnavailable)
		sub.msgs <- msg

		require.Equal(t, nacked, waitAck(t, msg))
		assert.Equal(t, messaging.Stats{Failed: 1}, consumer.Stats())
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("stops the loop", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, audit.TopicQuota,
			func(context.Context, *audit.QuotaEvent) error { return nil }, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("returns when the subscription closes first", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, audit.TopicQuota,
			func(context.Context, *audit.QuotaEvent) error { return nil }, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, sub.Close())

		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("is a no-op before start", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), audit.TopicQuota,
			func(context.Context, *audit.QuotaEvent) error { return nil }, zap.NewNop())

		assert.NoError(t, consumer.Shutdown())
	})
}
