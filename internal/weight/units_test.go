package weight_test

import (
	"testing"

	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]weight.Unit{
		"":     weight.UnitLbs,
		"lbs":  weight.UnitLbs,
		" LB ": weight.UnitLbs,
		"kgs":  weight.UnitKgs,
		"Kg":   weight.UnitKgs,
	} {
		got, err := weight.ParseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := weight.ParseUnit("stone")
	assert.Error(t, err)
}

func TestUnit_Conversions(t *testing.T) {
	assert.Equal(t, 180.0, weight.UnitLbs.FromLbs(180))
	assert.Equal(t, 180.0, weight.UnitLbs.ToLbs(180))
	assert.InDelta(t, 81.6467, weight.UnitKgs.FromLbs(180), 1e-4)
	assert.InDelta(t, 180.0, weight.UnitKgs.ToLbs(weight.UnitKgs.FromLbs(180)), 1e-9)

	assert.False(t, weight.UnitKgs.Value(weight.Value{}).Valid)
	v := weight.UnitKgs.Value(weight.Some(220.462))
	require.True(t, v.Valid)
	assert.InDelta(t, 100.0, v.V, 1e-9)
}
