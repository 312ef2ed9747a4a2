// Package status serves the broker's HTTP surface: the JSON state snapshot
// at /mqtt_data, the dashboard page at /, and Prometheus metrics at
// /metrics. It runs on its own goroutine and only ever reads snapshot
// copies and atomic counters, never the broker loop's live state.
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/life-stream-dev/mqttbroker/internal/broker"
	"github.com/life-stream-dev/mqttbroker/internal/config"
	"github.com/life-stream-dev/mqttbroker/internal/logger"
	"github.com/life-stream-dev/mqttbroker/internal/system"
)

// logEntry is one MessageLog record on the wire.
type logEntry struct {
	Topic     string `json:"topic"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// clientEntry is one connected client on the wire.
type clientEntry struct {
	ID               string   `json:"id"`
	LastSeen         int64    `json:"lastSeen"`
	SubscribedTopics []string `json:"subscribedTopics"`
}

// payload is the full /mqtt_data response document. Every field is present
// even when empty.
type payload struct {
	MessageLog       []logEntry        `json:"messageLog"`
	RetainedMessages map[string]string `json:"retainedMessages"`
	ConnectedClients []clientEntry     `json:"connectedClients"`
	WifiSSID         string            `json:"wifi_ssid"`
	WifiIP           string            `json:"wifi_ip"`
	Stats            *system.Info      `json:"stats"`
}

// Server is the status HTTP listener.
type Server struct {
	opts   config.Options
	holder *broker.SnapshotHolder
	info   *system.Info
	listen *http.Server
}

// New assembles the status server. registry carries the broker's
// Prometheus metrics; pass nil to skip the /metrics endpoint.
func New(opts config.Options, holder *broker.SnapshotHolder, info *system.Info, registry *prometheus.Registry) *Server {
	s := &Server{opts: opts, holder: holder, info: info}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.pageHandler)
	mux.HandleFunc("/mqtt_data", s.dataHandler)
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.listen = &http.Server{
		Addr:         opts.HTTPAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Serve blocks serving HTTP until Shutdown is called.
func (s *Server) Serve() error {
	logger.Info("status server listening", "address", s.opts.HTTPAddress)
	err := s.listen.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.listen.Shutdown(ctx)
}

// dataHandler renders the JSON snapshot the dashboard polls. Every field
// is present even when empty.
func (s *Server) dataHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Latest()

	doc := payload{
		MessageLog:       make([]logEntry, 0, len(snap.MessageLog)),
		RetainedMessages: make(map[string]string, len(snap.RetainedMessages)),
		ConnectedClients: make([]clientEntry, 0, len(snap.ConnectedClients)),
		WifiSSID:         s.opts.Network.SSID,
		WifiIP:           s.opts.Network.StaticIP,
		Stats:            s.info.Clone(),
	}

	for _, e := range snap.MessageLog {
		doc.MessageLog = append(doc.MessageLog, logEntry{
			Topic:     e.Topic,
			Payload:   e.Payload,
			Timestamp: e.TimestampMs,
		})
	}
	for _, rm := range snap.RetainedMessages {
		doc.RetainedMessages[rm.Topic] = rm.Payload
	}
	now := time.Now().UnixMilli()
	for _, c := range snap.ConnectedClients {
		subs := c.SubscribedTopics
		if subs == nil {
			subs = []string{}
		}
		doc.ConnectedClients = append(doc.ConnectedClients, clientEntry{
			ID:               c.ID,
			LastSeen:         now - c.LastSeenMs,
			SubscribedTopics: subs,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		logger.Warn("snapshot encode failed", "err", err)
	}
}

// pageHandler serves the dashboard page, which polls /mqtt_data every
// 2000ms.
func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(dashboardPage))
}

const dashboardPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>MQTT Broker Status</title>
<style>
body { font-family: sans-serif; margin: 2em; }
h2 { border-bottom: 1px solid #ccc; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
<h1>MQTT Broker</h1>
<h2>Connected Clients</h2>
<table id="clients"><tr><th>ID</th><th>Last Seen (ms)</th><th>Subscriptions</th></tr></table>
<h2>Retained Messages</h2>
<table id="retained"><tr><th>Topic</th><th>Payload</th></tr></table>
<h2>Message Log</h2>
<table id="log"><tr><th>Topic</th><th>Payload</th><th>Timestamp</th></tr></table>
<script>
function row(cells) {
  var tr = document.createElement('tr');
  cells.forEach(function (c) {
    var td = document.createElement('td');
    td.textContent = c;
    tr.appendChild(td);
  });
  return tr;
}
function trim(table) {
  while (table.rows.length > 1) table.deleteRow(1);
}
function refresh() {
  fetch('/mqtt_data').then(function (r) { return r.json(); }).then(function (d) {
    var clients = document.getElementById('clients');
    trim(clients);
    d.connectedClients.forEach(function (c) {
      clients.appendChild(row([c.id, c.lastSeen, c.subscribedTopics.join(', ')]));
    });
    var retained = document.getElementById('retained');
    trim(retained);
    Object.keys(d.retainedMessages).forEach(function (t) {
      retained.appendChild(row([t, d.retainedMessages[t]]));
    });
    var log = document.getElementById('log');
    trim(log);
    d.messageLog.forEach(function (m) {
      log.appendChild(row([m.topic, m.payload, m.timestamp]));
    });
  });
}
setInterval(refresh, 2000);
refresh();
</script>
</body>
</html>
`
