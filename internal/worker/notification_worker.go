package worker

import (
	"context"
	"sync"
	"time"

	"github.com/bitway/bitway-api/internal/notify"
	"go.uber.org/zap"
)

// Consumer delivers queued notification messages to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handle notify.Handler) error
}

// Dispatcher delivers a single message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message) error
}

// NotificationWorker drains the notification queue through the dispatcher.
// A consumer error is retried with capped exponential backoff.
type NotificationWorker struct {
	consumer   Consumer
	dispatcher Dispatcher
	minBackoff time.Duration
	maxBackoff time.Duration
	stopOnce   sync.Once
	done       chan struct{}
	cancel     context.CancelFunc
}

func NewNotificationWorker(consumer Consumer, dispatcher Dispatcher) *NotificationWorker {
	return &NotificationWorker{
		consumer:   consumer,
		dispatcher: dispatcher,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		done:       make(chan struct{}),
	}
}

// WithBackoff sets the retry bounds after a consumer failure.
func (w *NotificationWorker) WithBackoff(initial, ceiling time.Duration) *NotificationWorker {
	if initial > 0 {
		w.minBackoff = initial
	}
	if ceiling >= w.minBackoff {
		w.maxBackoff = ceiling
	}
	return w
}

// Start blocks until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	defer close(w.done)
	zap.L().Info("notification worker starting")

	backoff := w.minBackoff
	for {
		err := w.consumer.Consume(ctx, w.handle)
		if ctx.Err() != nil {
			zap.L().Info("notification worker stopped")
			return
		}
		if err != nil {
			zap.L().Warn("notification consumer failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			zap.L().Info("notification worker stopped")
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, w.maxBackoff)
	}
}

func (w *NotificationWorker) handle(ctx context.Context, msg notify.Message) error {
	return w.dispatcher.Dispatch(ctx, msg)
}

// Run starts the worker in a goroutine and returns a stop function that waits for it to exit.
func (w *NotificationWorker) Run(ctx context.Context) func() {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.Start(ctx)
	return func() {
		w.stopOnce.Do(w.cancel)
		<-w.done
	}
}
