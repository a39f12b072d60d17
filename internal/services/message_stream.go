package services

import (
	"fmt"
	"sync"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// MessageStream is the live ordered log of exactly one conversation.
// An insert event carrying this conversation's id triggers a full re-fetch
// of the log; re-reading everything keeps the total order correct without
// merge logic. Fetches carry per-stream sequence numbers and a response
// older than the latest issued request is discarded, so closing a
// conversation and rapidly reopening another can never leave a late
// response from the old one on screen.
type MessageStream struct {
	conversationID string
	svc            *MessageService

	mu       sync.Mutex
	seq      uint64
	messages []*models.Message
	closed   bool

	updates chan struct{}
	sub     *retrySubscription
}

// OpenStream starts a live message stream for one conversation. Fails with a
// not-found error when the conversation does not exist; a conversation with
// no messages yet opens with an empty log.
func (s *MessageService) OpenStream(conversationID string) (*MessageStream, error) {
	if conversationID == "" {
		return nil, validationErrorf("conversation ID is required")
	}

	conv, err := s.convRepo.GetByID(conversationID)
	if err != nil {
		return nil, transientErrorf("look up conversation: %v", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}

	stream := &MessageStream{
		conversationID: conversationID,
		svc:            s,
		messages:       []*models.Message{},
		updates:        make(chan struct{}, 1),
	}

	// Only inserts for this conversation are relevant; everything else is
	// filtered before it can trigger a refresh.
	stream.sub = subscribeWithRetry(s.bus, bus.TableMessages, func(ev bus.Event) bool {
		return ev.Op == bus.OpInsert && ev.ConversationID == conversationID
	}, func(bus.Event) { stream.refresh() })

	stream.refresh()
	return stream, nil
}

// refresh re-reads the full ordered log, discarding stale responses
func (m *MessageStream) refresh() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	messages, err := m.svc.msgRepo.ListByConversation(m.conversationID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || seq < m.seq {
		return
	}
	if err != nil {
		logger.Warn("Message stream refresh failed, keeping last log",
			zap.String("conversation_id", m.conversationID),
			zap.Error(err),
		)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	m.messages = messages
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// Messages returns the current ordered log, ascending by created_at
func (m *MessageStream) Messages() []*models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// ConversationID identifies the conversation this stream is bound to
func (m *MessageStream) ConversationID() string {
	return m.conversationID
}

// Updates signals after each applied refresh; closed when the stream closes
func (m *MessageStream) Updates() <-chan struct{} {
	return m.updates
}

// Close unsubscribes and makes any in-flight fetch a no-op. Idempotent.
func (m *MessageStream) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	// Drain any pending coalesced signal so receivers observe the close,
	// not a leftover update.
	select {
	case <-m.updates:
	default:
	}
	close(m.updates)
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
