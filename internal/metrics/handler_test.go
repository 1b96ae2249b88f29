package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return w.Result().StatusCode, string(body)
}

// TestSetupMetricsRoute_ExposesSchedulingSeries は予約の作成・拒否・イベント送信の各系列が/metricsに出ることを検証する。
func TestSetupMetricsRoute_ExposesSchedulingSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAppointmentCreated()
	c.RecordAppointmentRejected("conflict")
	c.SetActiveAppointments(1)
	c.RecordEventSinkFailure("postgres")
	c.RecordEventDropped()

	status, body := scrape(t, SetupMetricsRoute(reg), "/metrics")
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}

	for _, want := range []string{
		"roomsched_appointments_created_total 1",
		`roomsched_appointment_rejections_total{reason="conflict"} 1`,
		"roomsched_active_appointments 1",
		`roomsched_event_sink_failures_total{sink="postgres"} 1`,
		"roomsched_events_dropped_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
}

// TestSetupMetricsRoute_OnlyServesMetricsPath は/metrics以外のパスを公開しないことを検証する。
func TestSetupMetricsRoute_OnlyServesMetricsPath(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	if status, _ := scrape(t, SetupMetricsRoute(reg), "/appointments"); status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}
}
