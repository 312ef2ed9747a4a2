package broker

import "container/ring"

// LogEntry is one recorded PUBLISH, surfaced on the status snapshot.
type LogEntry struct {
	Topic       string
	Payload     string
	TimestampMs int64
}

// MessageLog keeps the most recent N PUBLISHes, oldest evicted first,
// backed by the standard library's container/ring.
type MessageLog struct {
	r     *ring.Ring
	count int
	cap   int
}

// NewMessageLog returns a log holding up to capacity entries. A capacity
// of 0 or less disables the log: Append drops every entry and Entries
// returns nothing.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		return &MessageLog{}
	}
	return &MessageLog{r: ring.New(capacity), cap: capacity}
}

// Append records an entry, evicting the oldest once the log is full.
func (l *MessageLog) Append(e LogEntry) {
	if l.cap == 0 {
		return
	}
	l.r.Value = e
	l.r = l.r.Next()
	if l.count < l.cap {
		l.count++
	}
}

// Entries returns the log's contents oldest-first.
func (l *MessageLog) Entries() []LogEntry {
	if l.cap == 0 {
		return nil
	}
	out := make([]LogEntry, 0, l.count)
	// l.r points at the slot the next Append will overwrite, i.e. the
	// oldest entry once the ring has wrapped at least once.
	start := l.r
	if l.count < l.cap {
		start = l.r.Move(-l.count)
	}
	start.Do(func(v any) {
		if v == nil {
			return
		}
		out = append(out, v.(LogEntry))
	})
	return out
}
