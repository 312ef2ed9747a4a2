package broker

import (
	"sync"

	"github.com/jinzhu/copier"
)

// ClientView is one connected client's entry on the status snapshot.
type ClientView struct {
	ID               string
	LastSeenMs       int64
	SubscribedTopics []string
}

// RetainedView is one topic's retained payload on the status snapshot.
type RetainedView struct {
	Topic   string
	Payload string
}

// Snapshot is the broker-owned state rendered by the status HTTP surface.
// It is read-only and safe to marshal straight to JSON; nothing in
// internal/status ever reaches back into Broker state.
type Snapshot struct {
	MessageLog       []LogEntry
	RetainedMessages []RetainedView
	ConnectedClients []ClientView
}

// internal mirror structs copier maps from; keeping the source shape
// distinct from the Session/Subscription types lets us choose exactly
// which fields escape the broker loop.
type clientSource struct {
	ID               string
	LastSeenMs       int64
	SubscribedTopics []string
}

// SnapshotHolder hands the loop's latest snapshot across to the status
// HTTP goroutine. The loop replaces the snapshot once per pass; readers
// only ever see a complete copy, never the live maps.
type SnapshotHolder struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (h *SnapshotHolder) set(s Snapshot) {
	h.mu.Lock()
	h.snap = s
	h.mu.Unlock()
}

// Latest returns the most recently published snapshot.
func (h *SnapshotHolder) Latest() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// Snapshot renders the current broker state for the status endpoint.
// It reads the live session map and retained store, so it must only ever
// be called from the goroutine driving Tick; other goroutines go through
// a SnapshotHolder.
func (b *Broker) Snapshot() Snapshot {
	snap := Snapshot{
		MessageLog: b.log.Entries(),
	}

	for topic, payload := range b.retained.byTopic {
		snap.RetainedMessages = append(snap.RetainedMessages, RetainedView{
			Topic:   topic,
			Payload: string(payload),
		})
	}

	for _, s := range b.sessions {
		if s.State != StateConnected {
			continue
		}
		src := clientSource{ID: s.ClientID, LastSeenMs: s.LastSeenMs}
		for _, sub := range s.Subscriptions {
			src.SubscribedTopics = append(src.SubscribedTopics, sub.Filter)
		}

		var dst ClientView
		_ = copier.Copy(&dst, &src)
		snap.ConnectedClients = append(snap.ConnectedClients, dst)
	}

	return snap
}
