package notifier

import (
	"context"
	"log"
)

// Sender delivers a formatted message, retrying on failure.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Alerter queues messages and delivers them from a single goroutine, so
// callers holding locks never wait on the network.
type Alerter struct {
	sender  Sender
	queue   chan string
	retries int
}

// NewAlerter creates an alerter with room for size queued messages.
func NewAlerter(sender Sender, size int) *Alerter {
	if size <= 0 {
		size = 64
	}
	return &Alerter{sender: sender, queue: make(chan string, size), retries: 2}
}

// Enqueue schedules text for delivery. When the queue is full the message is dropped.
func (a *Alerter) Enqueue(text string) bool {
	select {
	case a.queue <- text:
		return true
	default:
		log.Printf("[WARN] alert queue full, dropping message")
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (a *Alerter) Run(ctx context.Context) {
	for {
		select {
		case text := <-a.queue:
			a.deliver(ctx, text)
		case <-ctx.Done():
			for {
				select {
				case text := <-a.queue:
					a.deliver(context.Background(), text)
				default:
					return
				}
			}
		}
	}
}

func (a *Alerter) deliver(ctx context.Context, text string) {
	if err := a.sender.SendWithRetry(ctx, text, a.retries); err != nil {
		log.Printf("[ERROR] failed to deliver alert: %v", err)
	}
}
