package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var sum float64
			for _, m := range mf.GetMetric() {
				sum += m.GetCounter().GetValue()
			}
			return sum
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLoginSuccess_IncrementsCounter はログイン成功カウンタが増加することを検証する。
func TestRecordLoginSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()

	if val := counterValue(t, reg, "teamcal_login_success_total"); val != 2 {
		t.Errorf("login_success_total = %v, want 2", val)
	}
}

// TestRecordLoginFailure_IncrementsCounter はログイン失敗カウンタが理由別に増加することを検証する。
func TestRecordLoginFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginFailure("exchange_failed")
	c.RecordLoginFailure("state_mismatch")

	if val := counterValue(t, reg, "teamcal_login_fail_total"); val != 2 {
		t.Errorf("login_fail_total = %v, want 2", val)
	}
}

// TestRecordCalendarQuery_IncrementsCounter はカレンダー照会カウンタが結果別に増加することを検証する。
func TestRecordCalendarQuery_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCalendarQuery("success")
	c.RecordCalendarQuery("success")
	c.RecordCalendarQuery("token_expired")

	if val := counterValue(t, reg, "teamcal_calendar_query_total"); val != 3 {
		t.Errorf("calendar_query_total = %v, want 3", val)
	}
}

// TestRecordTokenCleared_IncrementsCounter はトークンクリアカウンタが増加することを検証する。
func TestRecordTokenCleared_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenCleared()

	if val := counterValue(t, reg, "teamcal_token_cleared_total"); val != 1 {
		t.Errorf("token_cleared_total = %v, want 1", val)
	}
}

// TestRecordHTTPStatus_IncrementsCounter はステータスコード別カウンタが増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if val := counterValue(t, reg, "teamcal_http_status_total"); val != 3 {
		t.Errorf("http_status_total = %v, want 3", val)
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシヒストグラムが観測されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(120 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "teamcal_request_latency_seconds" {
			found = true
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
				t.Error("expected 1 histogram sample")
			}
		}
	}
	if !found {
		t.Error("teamcal_request_latency_seconds metric not found")
	}
}
