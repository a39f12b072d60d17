package services

import (
	"sync"
	"time"

	"clinic-console-server/internal/bus"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

const (
	subscribeBackoffBase = time.Second
	subscribeBackoffCap  = 30 * time.Second
)

// retrySubscription wraps a bus subscription with retry-on-failure. The first
// attempt is made inline; if the bus is unavailable the registration keeps
// retrying in the background with capped exponential backoff until it
// succeeds or is unsubscribed.
type retrySubscription struct {
	mu     sync.Mutex
	sub    bus.Subscription
	closed bool
}

func subscribeWithRetry(b bus.Bus, table string, filter bus.Filter, handler bus.Handler) *retrySubscription {
	rs := &retrySubscription{}

	sub, err := b.Subscribe(table, filter, handler)
	if err == nil {
		rs.sub = sub
		return rs
	}
	logger.Warn("Change bus subscription failed, retrying",
		zap.String("table", table),
		zap.Error(err),
	)

	go func() {
		backoff := subscribeBackoffBase
		for {
			time.Sleep(backoff)

			rs.mu.Lock()
			if rs.closed {
				rs.mu.Unlock()
				return
			}
			rs.mu.Unlock()

			sub, err := b.Subscribe(table, filter, handler)
			if err != nil {
				logger.Warn("Change bus subscription retry failed",
					zap.String("table", table),
					zap.Error(err),
				)
				if backoff*2 < subscribeBackoffCap {
					backoff *= 2
				}
				continue
			}

			rs.mu.Lock()
			if rs.closed {
				rs.mu.Unlock()
				sub.Unsubscribe()
				return
			}
			rs.sub = sub
			rs.mu.Unlock()
			return
		}
	}()

	return rs
}

// Unsubscribe stops delivery and cancels any pending retry
func (rs *retrySubscription) Unsubscribe() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.closed {
		return
	}
	rs.closed = true
	if rs.sub != nil {
		rs.sub.Unsubscribe()
		rs.sub = nil
	}
}
