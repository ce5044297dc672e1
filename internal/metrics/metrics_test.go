package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersAreReflectedInHandlerOutput(t *testing.T) {
	m := New()
	m.IncFrame()
	m.AddBytesDecoded("raw", 42)
	m.SetQueueDepth("decode", 3)
	m.ObserveThrottleSleep(0.01)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "flashvnc_frames_total 1")
	assert.Contains(t, body, `flashvnc_bytes_decoded_total{encoding="raw"} 42`)
	assert.Contains(t, body, `flashvnc_decode_queue_depth{pool="decode"} 3`)
	assert.Contains(t, body, "flashvnc_throttle_sleep_seconds")
}

func TestNilMetricsRecordersAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncFrame()
		m.AddBytesDecoded("raw", 1)
		m.SetQueueDepth("decode", 1)
		m.ObserveThrottleSleep(0.1)
		m.Handler()
	})
}
