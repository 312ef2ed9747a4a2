package system

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsIndependent(t *testing.T) {
	info := &Info{}
	Add(&info.BytesReceived, 128)
	Set(&info.ClientsConnected, 3)

	c := info.Clone()
	assert.Equal(t, int64(128), c.BytesReceived)
	assert.Equal(t, int64(3), c.ClientsConnected)

	Add(&info.BytesReceived, 1)
	assert.Equal(t, int64(128), c.BytesReceived, "clone does not track the source")
}

func TestRegisterPrometheusMetrics(t *testing.T) {
	info := &Info{}
	Add(&info.PacketsReceived, 7)

	registry := prometheus.NewRegistry()
	info.RegisterPrometheusMetrics(registry)

	mfs, err := registry.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "packets_received" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, float64(7), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "packets_received registered")
}
