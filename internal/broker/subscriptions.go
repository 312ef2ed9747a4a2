package broker

import "github.com/life-stream-dev/mqttbroker/internal/topics"

// subEntry is one (session, filter, QoS) row in the flat subscription
// index. At this broker's scale a filter trie buys nothing; a flat scanned
// slice is trivial to reason about.
type subEntry struct {
	session SessionID
	filter  string
	qos     byte
}

// SubIndex is the broker-wide subscription table. It never stores a
// pointer or slice index into the session map — only SessionID handles —
// so a session's entry here outlives any reshuffling of that map.
type SubIndex struct {
	entries []subEntry
}

// NewSubIndex returns an empty subscription index.
func NewSubIndex() *SubIndex {
	return &SubIndex{}
}

// Add installs or updates a subscription. Re-subscribing to a filter a
// session already holds replaces the granted QoS in place rather than
// appending a duplicate row [MQTT-3.8.4-3].
func (idx *SubIndex) Add(session SessionID, filter string, qos byte) {
	for i := range idx.entries {
		if idx.entries[i].session == session && idx.entries[i].filter == filter {
			idx.entries[i].qos = qos
			return
		}
	}
	idx.entries = append(idx.entries, subEntry{session: session, filter: filter, qos: qos})
}

// Remove drops one (session, filter) subscription. It is not an error for
// the filter to be absent; callers report that back via UNSUBACK already
// succeeding.
func (idx *SubIndex) Remove(session SessionID, filter string) {
	for i := range idx.entries {
		if idx.entries[i].session == session && idx.entries[i].filter == filter {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// RemoveSession drops every subscription belonging to session, used when a
// session closes.
func (idx *SubIndex) RemoveSession(session SessionID) {
	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if e.session != session {
			kept = append(kept, e)
		}
	}
	idx.entries = kept
}

// match is one subscriber's stake in a delivery: which session, and at
// what QoS the message should be regraded to (min of publish QoS and
// granted QoS, [MQTT-3.3.5-1]).
type match struct {
	session SessionID
	qos     byte
}

// Matching returns every subscriber whose filter matches topic. If a
// single session holds more than one matching filter, it appears once per
// matching filter; the index does not collapse such duplicates, so a
// session with overlapping filters receives one copy per filter.
func (idx *SubIndex) Matching(topic string, publishQoS byte) []match {
	var out []match
	for _, e := range idx.entries {
		if !topics.Matches(topic, e.filter) {
			continue
		}
		qos := e.qos
		if publishQoS < qos {
			qos = publishQoS
		}
		out = append(out, match{session: e.session, qos: qos})
	}
	return out
}
