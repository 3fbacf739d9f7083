package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveAction(t *testing.T) {
	m := New("")
	m.ObserveAction("bet", OutcomeApplied)
	m.ObserveAction("bet", OutcomeApplied)
	m.ObserveAction("bet", OutcomeReplayed)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Actions().WithLabelValues("bet", OutcomeApplied)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Actions().WithLabelValues("bet", OutcomeReplayed)))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New("vegas")
	m.ObserveRequest("play", "0")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `vegas_rpc_requests_total{code="0",method="play"} 1`)
}
