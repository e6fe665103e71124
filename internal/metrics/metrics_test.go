package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetpoint/internal/types"
)

func metricValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metric:
		for _, metric := range fam.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metric
				}
			}
			if metric.GetCounter() != nil {
				return metric.GetCounter().GetValue()
			}
			if metric.GetHistogram() != nil {
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestRecordDelivery(t *testing.T) {
	m := New()

	m.RecordDelivery(types.TriggerUserCreated, true, 50*time.Millisecond)
	m.RecordDelivery(types.TriggerUserCreated, true, 70*time.Millisecond)
	m.RecordDelivery(types.TriggerUserCreated, false, 5*time.Second)

	assert.Equal(t, 2.0, metricValue(t, m, "meetpoint_webhook_deliveries_total",
		map[string]string{"trigger": "USER_CREATED", "result": "success"}))
	assert.Equal(t, 1.0, metricValue(t, m, "meetpoint_webhook_deliveries_total",
		map[string]string{"trigger": "USER_CREATED", "result": "failed"}))
	assert.Equal(t, 3.0, metricValue(t, m, "meetpoint_webhook_delivery_duration_seconds",
		map[string]string{"trigger": "USER_CREATED"}))
}

func TestRecordFanout(t *testing.T) {
	m := New()

	m.RecordFanout(types.TriggerScheduleCreated, 3)
	m.RecordFanout(types.TriggerScheduleCreated, 7)

	assert.Equal(t, 2.0, metricValue(t, m, "meetpoint_webhook_dispatch_fanout", nil))
}

func TestRecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest(http.MethodPost, "/v1/webhooks", "201", 10*time.Millisecond)
	m.RecordRequest(http.MethodPost, "/v1/webhooks", "201", 12*time.Millisecond)

	assert.Equal(t, 2.0, metricValue(t, m, "meetpoint_api_requests_total",
		map[string]string{"method": "POST", "route": "/v1/webhooks", "status": "201"}))
}

func TestHandler_ServesScrapeOutput(t *testing.T) {
	m := New()
	m.RecordDelivery(types.TriggerMeetingEnded, true, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "meetpoint_webhook_deliveries_total")
	assert.Contains(t, string(body), `trigger="MEETING_ENDED"`)
}
