package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

// Dispatcher hands messages to a wrapped Notifier on background workers so callers never
// wait on delivery. Delivery failures are logged and dropped.
type Dispatcher struct {
	next    Notifier
	logger  *log.Logger
	timeout time.Duration

	queue  chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(next Notifier, logger *log.Logger, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		next:    next,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan Message, queueSize),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Notify enqueues msg and returns immediately.
func (d *Dispatcher) Notify(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Printf("notification dropped user_id=%d subject=%q: queue full", msg.RecipientUserID, msg.Subject)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.next.Notify(ctx, msg); err != nil {
		d.logger.Printf("notification failed user_id=%d subject=%q: %v", msg.RecipientUserID, msg.Subject, err)
		return
	}
	d.logger.Printf("notification sent user_id=%d subject=%q duration=%s", msg.RecipientUserID, msg.Subject, time.Since(start))
}
