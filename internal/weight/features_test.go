package weight_test

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingMean(t *testing.T) {
	faker := gofakeit.New(42)
	values := make([]float64, 30)
	for i := range values {
		values[i] = faker.Float64Range(120, 250)
	}

	means := weight.RollingMean(values, weight.RollingWindow)
	require.Len(t, means, len(values))

	for i := 0; i < weight.RollingWindow-1; i++ {
		assert.False(t, means[i].Valid, "position %d must be undefined", i)
	}
	for i := weight.RollingWindow - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - 6; j <= i; j++ {
			sum += values[j]
		}
		require.True(t, means[i].Valid)
		assert.InDelta(t, sum/7, means[i].V, 1e-9)
	}
}

func TestRollingMean_ShortInput(t *testing.T) {
	means := weight.RollingMean([]float64{1, 2, 3}, weight.RollingWindow)
	require.Len(t, means, 3)
	for _, m := range means {
		assert.False(t, m.Valid)
	}
	assert.Empty(t, weight.RollingMean(nil, weight.RollingWindow))
}

func TestMinMaxNormalize(t *testing.T) {
	in := []weight.Value{{}, weight.Some(3), weight.Some(7), {}, weight.Some(5), weight.Some(11)}
	out := weight.MinMaxNormalize(in)
	require.Len(t, out, len(in))

	assert.False(t, out[0].Valid)
	assert.False(t, out[3].Valid)
	assert.Equal(t, weight.Some(0), out[1])
	assert.Equal(t, weight.Some(1), out[5])
	assert.InDelta(t, 0.5, out[2].V, 1e-12)
	assert.InDelta(t, 0.25, out[4].V, 1e-12)
	for _, v := range out {
		if v.Valid {
			assert.GreaterOrEqual(t, v.V, 0.0)
			assert.LessOrEqual(t, v.V, 1.0)
		}
	}
}

func TestMinMaxNormalize_Degenerate(t *testing.T) {
	out := weight.MinMaxNormalize([]weight.Value{{}, weight.Some(4), weight.Some(4)})
	assert.Equal(t, []weight.Value{{}, weight.Some(0), weight.Some(0)}, out)

	out = weight.MinMaxNormalize([]weight.Value{{}, {}})
	assert.Equal(t, []weight.Value{{}, {}}, out)
}

func TestDerive_EndToEnd(t *testing.T) {
	dataset, err := weight.NewDataset(risingEntries(10))
	require.NoError(t, err)

	derived := weight.Derive(dataset, weight.DefaultBlend)
	require.Len(t, derived.Rows, 10)
	assert.Equal(t, weight.DefaultBlend, derived.Blend)

	for i, row := range derived.Rows {
		if i < 6 {
			assert.False(t, row.WeightAvg7.Valid, "row %d", i)
			assert.False(t, row.FoodAvg7.Valid, "row %d", i)
			assert.False(t, row.ExerAvg7.Valid, "row %d", i)
			assert.False(t, row.Activity.Valid, "row %d", i)
			continue
		}
		assert.True(t, row.WeightAvg7.Valid, "row %d", i)
		assert.True(t, row.FoodAvg7.Valid, "row %d", i)
		assert.True(t, row.ExerAvg7.Valid, "row %d", i)
		assert.True(t, row.Activity.Valid, "row %d", i)
		// mean of 7 consecutive values rising by 0.1 is the middle one
		assert.InDelta(t, 180+0.1*float64(i-3), row.WeightAvg7.V, 1e-9)
		assert.InDelta(t, 5, row.FoodAvg7.V, 1e-12)
		// constant food column normalizes to 0
		assert.Equal(t, weight.Some(0), row.FoodNorm)
	}

	// windows ending on an even index hold 4 exercised days, odd ones hold 3
	assert.InDelta(t, 4.0/7, derived.Rows[6].ExerAvg7.V, 1e-12)
	assert.InDelta(t, 3.0/7, derived.Rows[7].ExerAvg7.V, 1e-12)
	assert.InDelta(t, 1, derived.Rows[6].ExerNorm.V, 1e-12)
	assert.InDelta(t, 0, derived.Rows[7].ExerNorm.V, 1e-12)
	assert.InDelta(t, 0.3, derived.Rows[8].Activity.V, 1e-12)
	assert.InDelta(t, 0, derived.Rows[9].Activity.V, 1e-12)

	missing := slices.Collect(weight.FindMissing(dataset, day(14)))
	assert.Equal(t, []time.Time{day(10), day(11), day(12), day(13), day(14)}, missing)
}

func TestDerive_CustomBlend(t *testing.T) {
	entries := risingEntries(8)
	entries[7].Food = 9
	dataset, err := weight.NewDataset(entries)
	require.NoError(t, err)

	blend, err := weight.NewBlend(0.5)
	require.NoError(t, err)
	derived := weight.Derive(dataset, blend)

	last := derived.Rows[7]
	assert.InDelta(t, 1, last.FoodNorm.V, 1e-12)
	assert.InDelta(t, 0.5*last.FoodNorm.V+0.5*last.ExerNorm.V, last.Activity.V, 1e-12)

	_, err = weight.NewBlend(1.2)
	assert.Error(t, err)
}

func TestDerive_Empty(t *testing.T) {
	dataset, err := weight.NewDataset(nil)
	require.NoError(t, err)
	assert.Empty(t, weight.Derive(dataset, weight.DefaultBlend).Rows)
}

func TestFindMissing(t *testing.T) {
	entries := []weight.Entry{
		{Date: day(0), Weight: 180},
		{Date: day(2), Weight: 180},
		{Date: day(3), Weight: 180},
		{Date: day(6), Weight: 180},
	}
	dataset, err := weight.NewDataset(entries)
	require.NoError(t, err)

	seq := weight.FindMissing(dataset, day(7).Add(15*time.Hour))
	expected := []time.Time{day(1), day(4), day(5), day(7)}
	assert.Equal(t, expected, slices.Collect(seq))
	// restartable
	assert.Equal(t, expected, slices.Collect(seq))

	// early stop
	var first []time.Time
	for d := range seq {
		first = append(first, d)
		break
	}
	assert.Equal(t, []time.Time{day(1)}, first)

	assert.Empty(t, slices.Collect(weight.FindMissing(dataset, day(-3))))
}

func TestFindMissing_EmptyDataset(t *testing.T) {
	dataset, err := weight.NewDataset(nil)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(weight.FindMissing(dataset, day(10))))
}

func TestValue_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A weight.Value `json:"a"`
		B weight.Value `json:"b"`
	}{A: weight.Some(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": null}`, string(b))

	var decoded struct {
		A weight.Value `json:"a"`
		B weight.Value `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, weight.Some(1.5), decoded.A)
	assert.False(t, decoded.B.Valid)
}
