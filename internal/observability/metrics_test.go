package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Gauge != nil {
		return out.GetGauge().GetValue()
	}
	return out.GetCounter().GetValue()
}

func TestCollectorsRecord(t *testing.T) {
	Init()
	Init()

	AddSettledVolume("withdrawal", 250050)
	assert.InDelta(t, 2500.50, value(t, settledNaira.WithLabelValues("withdrawal")), 0.001)

	before := value(t, settlements.WithLabelValues("success"))
	IncrementSettlement("success")
	assert.Equal(t, before+1, value(t, settlements.WithLabelValues("success")))

	SetPendingTransactions(7)
	assert.Equal(t, float64(7), value(t, pendingTransactions))
}
