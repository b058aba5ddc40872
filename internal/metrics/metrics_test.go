package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	Optimizations.WithLabelValues("heuristic").Inc()
	families, err := Registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["routeopt_optimizations_total"])
	assert.True(t, names["go_goroutines"])
}

func TestCounterValue(t *testing.T) {
	RegisterDefault()
	TierFallbacks.WithLabelValues("external", "GATEWAY_CAPPED").Inc()

	families, err := Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "routeopt_tier_fallbacks_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			if len(m.GetLabel()) == 2 && m.GetLabel()[0].GetValue() == "GATEWAY_CAPPED" {
				found = true
				assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 1.0)
			}
		}
	}
	assert.True(t, found)
}
