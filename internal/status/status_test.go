package status

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-stream-dev/mqttbroker/internal/broker"
	"github.com/life-stream-dev/mqttbroker/internal/config"
	"github.com/life-stream-dev/mqttbroker/internal/system"
)

func newTestServer() *Server {
	opts := config.Default()
	opts.Network.SSID = "lab"
	opts.Network.StaticIP = "10.0.0.2"
	return New(opts, &broker.SnapshotHolder{}, &system.Info{}, nil)
}

func TestDataHandlerContract(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.dataHandler(rec, httptest.NewRequest("GET", "/mqtt_data", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	// every field is present even when the broker is empty
	assert.JSONEq(t, `[]`, string(doc["messageLog"]))
	assert.JSONEq(t, `{}`, string(doc["retainedMessages"]))
	assert.JSONEq(t, `[]`, string(doc["connectedClients"]))
	assert.JSONEq(t, `"lab"`, string(doc["wifi_ssid"]))
	assert.JSONEq(t, `"10.0.0.2"`, string(doc["wifi_ip"]))
	require.Contains(t, doc, "stats")
}

func TestPageHandler(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.pageHandler(rec, httptest.NewRequest("GET", "/", nil))

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "/mqtt_data"), "page polls the snapshot endpoint")
	assert.True(t, strings.Contains(body, "2000"), "poll interval is 2000ms")
}

func TestPageHandlerUnknownPath(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	s.pageHandler(rec, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, 404, rec.Code)
}
