package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveGameDuration(150 * time.Microsecond)
	pr.ObserveGameSteps(58)
	pr.IncGameOutcome(OutcomeCompleted)
	pr.IncGameOutcome(OutcomeCompleted)
	pr.IncGameOutcome(OutcomeAbandoned)
	pr.ObserveStageDuration("checkpoint", 20*time.Millisecond)
	pr.IncStageResult("checkpoint", true)
	pr.SetActiveWorkers(4)
	pr.SetTableKeys(1234)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	outcomes := map[string]float64{}
	var workers float64
	for _, mf := range mfs {
		switch mf.GetName() {
		case "setsim_games_total":
			for _, m := range mf.GetMetric() {
				outcomes[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			}
		case "setsim_active_workers":
			workers = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"completed": 2, "abandoned": 1}, outcomes)
	assert.InDelta(t, 4, workers, 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveGameDuration(time.Second)
	pr.IncGameOutcome(OutcomePanicked)
	pr.SetTableKeys(1)
}

func TestServerExposesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncGameOutcome(OutcomeCompleted)

	srv, err := Listen("127.0.0.1:0", reg)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "setsim_games_total"))
}
