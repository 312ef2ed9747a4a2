// Package system tracks broker-wide statistics of the kind usually found
// under $SYS topics: byte, packet and message counters plus gauges for the
// live client, retained, inflight and subscription counts. The counters are
// updated with atomic operations from the broker loop and read from the
// status HTTP goroutine, and can be exported to Prometheus.
package system

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Info contains atomic counters and values for broker statistics, surfaced
// both on the JSON status snapshot and on /metrics.
type Info struct {
	Started          int64 `json:"started"`           // unix seconds the broker started at
	BytesReceived    int64 `json:"bytes_received"`    // total bytes received since start
	BytesSent        int64 `json:"bytes_sent"`        // total bytes sent since start
	ClientsConnected int64 `json:"clients_connected"` // currently connected clients
	MessagesReceived int64 `json:"messages_received"` // total PUBLISH messages received
	MessagesSent     int64 `json:"messages_sent"`     // total PUBLISH messages sent
	Retained         int64 `json:"retained"`          // retained messages currently stored
	Inflight         int64 `json:"inflight"`          // QoS 1/2 messages awaiting acknowledgement
	Subscriptions    int64 `json:"subscriptions"`     // subscriptions currently active
	PacketsReceived  int64 `json:"packets_received"`  // total control packets received
	PacketsSent      int64 `json:"packets_sent"`      // total control packets sent
}

// Add atomically adds delta to the counter at p.
func Add(p *int64, delta int64) {
	atomic.AddInt64(p, delta)
}

// Set atomically stores val into the gauge at p.
func Set(p *int64, val int64) {
	atomic.StoreInt64(p, val)
}

// Clone copies Info using atomic loads, so readers on other goroutines
// never observe a torn value.
func (i *Info) Clone() *Info {
	return &Info{
		Started:          atomic.LoadInt64(&i.Started),
		BytesReceived:    atomic.LoadInt64(&i.BytesReceived),
		BytesSent:        atomic.LoadInt64(&i.BytesSent),
		ClientsConnected: atomic.LoadInt64(&i.ClientsConnected),
		MessagesReceived: atomic.LoadInt64(&i.MessagesReceived),
		MessagesSent:     atomic.LoadInt64(&i.MessagesSent),
		Retained:         atomic.LoadInt64(&i.Retained),
		Inflight:         atomic.LoadInt64(&i.Inflight),
		Subscriptions:    atomic.LoadInt64(&i.Subscriptions),
		PacketsReceived:  atomic.LoadInt64(&i.PacketsReceived),
		PacketsSent:      atomic.LoadInt64(&i.PacketsSent),
	}
}

// RegisterPrometheusMetrics exposes the counters on a Prometheus registry.
// Counters register as CounterFunc and gauges as GaugeFunc, both reading
// the live atomic values at scrape time.
func (i *Info) RegisterPrometheusMetrics(registry prometheus.Registerer) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	type metric struct {
		metricType string
		name       string
		help       string
		value      *int64
	}

	metricsList := []metric{
		{"c", "bytes_received", "Total number of bytes received", &i.BytesReceived},
		{"c", "bytes_sent", "Total number of bytes sent", &i.BytesSent},
		{"g", "clients_connected", "Number of currently connected clients", &i.ClientsConnected},
		{"c", "messages_received", "Total number of publish messages received", &i.MessagesReceived},
		{"c", "messages_sent", "Total number of publish messages sent", &i.MessagesSent},
		{"g", "retained", "Number of retained messages active on the broker", &i.Retained},
		{"g", "inflight", "Number of messages currently in-flight", &i.Inflight},
		{"g", "subscriptions", "Number of subscriptions active on the broker", &i.Subscriptions},
		{"c", "packets_received", "Total number of control packets received", &i.PacketsReceived},
		{"c", "packets_sent", "Total number of control packets sent", &i.PacketsSent},
	}

	for _, m := range metricsList {
		m := m
		fn := func() float64 {
			return float64(atomic.LoadInt64(m.value))
		}

		switch m.metricType {
		case "c":
			registry.MustRegister(prometheus.NewCounterFunc(
				prometheus.CounterOpts{Name: m.name, Help: m.help}, fn))
		case "g":
			registry.MustRegister(prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{Name: m.name, Help: m.help}, fn))
		}
	}
}
