package services

import (
	"sync"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/models"
	"clinic-console-server/pkg/logger"

	"go.uber.org/zap"
)

// DirectoryView is a live, role-scoped snapshot of the conversation
// directory. It refreshes itself on every conversations-table event and on
// every messages-table insert, and guarantees refresh results are applied in
// issuance order: a response carrying a sequence number lower than the latest
// issued request is discarded, so a late fetch can never overwrite a newer
// snapshot. A failed refresh keeps the last good snapshot.
type DirectoryView struct {
	actor models.Actor
	svc   *ConversationService

	mu       sync.Mutex
	seq      uint64
	snapshot []*models.ConversationSummary
	closed   bool

	updates chan struct{}
	subs    []*retrySubscription
}

// OpenDirectory starts a live directory view for the actor. The initial load
// happens before returning; a transient load failure leaves the snapshot
// empty and is repaired by the first event. Close the view when done.
func (s *ConversationService) OpenDirectory(actor models.Actor) (*DirectoryView, error) {
	if actor.IsZero() {
		return nil, ErrSession
	}
	if _, _, ok := conversationScope(actor); !ok {
		return nil, ErrForbidden
	}

	v := &DirectoryView{
		actor:   actor,
		svc:     s,
		updates: make(chan struct{}, 1),
	}

	onEvent := func(bus.Event) { v.refresh() }

	// Any change to a conversation row reorders or re-annotates the list;
	// a new message changes the preview and ordering.
	v.subs = append(v.subs,
		subscribeWithRetry(s.bus, bus.TableConversations, nil, onEvent),
		subscribeWithRetry(s.bus, bus.TableMessages, func(ev bus.Event) bool {
			return ev.Op == bus.OpInsert
		}, onEvent),
	)

	v.refresh()
	return v, nil
}

// refresh re-lists the scoped directory and installs the result unless a
// newer refresh was issued meanwhile or the view was closed
func (v *DirectoryView) refresh() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	summaries, err := v.svc.ListConversations(v.actor)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || seq < v.seq {
		// Stale response: a newer request was issued while this one was
		// in flight, or the view was torn down.
		return
	}
	if err != nil {
		logger.Warn("Directory refresh failed, keeping last snapshot",
			zap.String("actor_id", v.actor.ID),
			zap.Error(err),
		)
		return
	}

	v.snapshot = summaries
	select {
	case v.updates <- struct{}{}:
	default:
	}
}

// Snapshot returns the current directory ordering. The returned slice is a
// copy; rows are shared and must not be mutated.
func (v *DirectoryView) Snapshot() []*models.ConversationSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*models.ConversationSummary, len(v.snapshot))
	copy(out, v.snapshot)
	return out
}

// Updates signals after each applied refresh. The channel is coalescing:
// bursts collapse into one pending signal. It is closed when the view closes.
func (v *DirectoryView) Updates() <-chan struct{} {
	return v.updates
}

// Close unsubscribes from the bus and discards any in-flight refresh.
// Idempotent.
func (v *DirectoryView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	// Drain any pending coalesced signal so receivers observe the close,
	// not a leftover update.
	select {
	case <-v.updates:
	default:
	}
	close(v.updates)
	subs := v.subs
	v.subs = nil
	v.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
