package messaging

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when an AsyncPublisher has no room for another event.
	ErrQueueFull = errors.New("publish queue full")
	// ErrPublisherClosed is returned after Shutdown.
	ErrPublisherClosed = errors.New("publisher closed")
)

// DefaultPublishTimeout bounds one broker call when no timeout is given.
const DefaultPublishTimeout = 2 * time.Second

type pending[T any] struct {
	ctx   context.Context // detached from the caller's cancellation
	event *T
}

// AsyncPublisher queues events for a background worker so callers never wait
// on the broker. Publish only enqueues; a full queue drops the event.
type AsyncPublisher[T any] struct {
	publish Publish[T]
	timeout time.Duration
	onError func(event *T, err error)

	queue chan pending[T]
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts a worker that drains up to buffer queued events
// through publish, each bounded by timeout (DefaultPublishTimeout when not
// positive). onError, if set, is called from the worker for every event the
// broker rejected.
func NewAsyncPublisher[T any](
	publish Publish[T],
	buffer int,
	timeout time.Duration,
	onError func(event *T, err error),
) *AsyncPublisher[T] {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	p := &AsyncPublisher[T]{
		publish: publish,
		timeout: timeout,
		onError: onError,
		queue:   make(chan pending[T], buffer),
		done:    make(chan struct{}),
	}

	go p.run()

	return p
}

// Publish enqueues event without blocking. The caller's context values are
// kept but its cancellation is not, so a finished request does not abort
// the publish.
func (p *AsyncPublisher[T]) Publish(ctx context.Context, event *T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- pending[T]{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher[T]) run() {
	defer close(p.done)

	for item := range p.queue {
		ctx, cancel := context.WithTimeout(item.ctx, p.timeout)
		err := p.publish(ctx, item.event)

		cancel()

		if err != nil && p.onError != nil {
			p.onError(item.event, err)
		}
	}
}

// Shutdown stops accepting events and waits for the queued ones to be sent.
func (p *AsyncPublisher[T]) Shutdown() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done

	return nil
}
