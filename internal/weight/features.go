package weight

import (
	"encoding/json"
	"fmt"
	"iter"
	"time"
)

// RollingWindow is the number of rows (not calendar days) averaged by the rolling columns.
const RollingWindow = 7

// Value is a float that may be undefined. Undefined values marshal to JSON null.
type Value struct {
	V     float64
	Valid bool
}

func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

func (v Value) String() string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.V)
}

// Blend weights the normalized food and exercise signals into the activity score.
type Blend struct {
	Food float64
	Exer float64
}

var DefaultBlend = Blend{Food: 0.7, Exer: 0.3}

func NewBlend(foodWeight float64) (Blend, error) {
	if foodWeight < 0 || foodWeight > 1 {
		return Blend{}, fmt.Errorf("blend food weight must be in [0, 1], got %v", foodWeight)
	}
	return Blend{Food: foodWeight, Exer: 1 - foodWeight}, nil
}

type EnrichedRow struct {
	Entry
	WeightAvg7 Value
	FoodAvg7   Value
	ExerAvg7   Value
	FoodNorm   Value
	ExerNorm   Value
	Activity   Value
}

type EnrichedDataset struct {
	Rows  []EnrichedRow
	Blend Blend
}

// Derive computes the rolling, normalized and blended columns of every row.
// Rolling windows are positional: with missing dates a window spans more than 7 calendar days.
// The first RollingWindow-1 rows have undefined rolling columns.
func Derive(d *Dataset, blend Blend) EnrichedDataset {
	entries := d.Entries()

	weights := make([]float64, len(entries))
	foods := make([]float64, len(entries))
	exers := make([]float64, len(entries))
	for i, e := range entries {
		weights[i] = e.Weight
		foods[i] = float64(e.Food)
		exers[i] = e.ExerValue()
	}

	weightAvg := RollingMean(weights, RollingWindow)
	foodAvg := RollingMean(foods, RollingWindow)
	exerAvg := RollingMean(exers, RollingWindow)
	foodNorm := MinMaxNormalize(foodAvg)
	exerNorm := MinMaxNormalize(exerAvg)

	rows := make([]EnrichedRow, len(entries))
	for i, e := range entries {
		row := EnrichedRow{
			Entry:      e,
			WeightAvg7: weightAvg[i],
			FoodAvg7:   foodAvg[i],
			ExerAvg7:   exerAvg[i],
			FoodNorm:   foodNorm[i],
			ExerNorm:   exerNorm[i],
		}
		if row.FoodNorm.Valid && row.ExerNorm.Valid {
			row.Activity = Some(blend.Food*row.FoodNorm.V + blend.Exer*row.ExerNorm.V)
		}
		rows[i] = row
	}

	return EnrichedDataset{
		Rows:  rows,
		Blend: blend,
	}
}

// RollingMean returns the trailing mean of each window-sized run of values.
// Positions before the first full window are undefined.
func RollingMean(values []float64, window int) []Value {
	out := make([]Value, len(values))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		for _, v := range values[i-window+1 : i+1] {
			sum += v
		}
		out[i] = Some(sum / float64(window))
	}
	return out
}

// MinMaxNormalize maps defined values linearly onto [0, 1].
// A constant column (max == min) normalizes to 0.
func MinMaxNormalize(values []Value) []Value {
	out := make([]Value, len(values))

	var minV, maxV float64
	seen := false
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if !seen {
			minV, maxV = v.V, v.V
			seen = true
			continue
		}
		minV = min(minV, v.V)
		maxV = max(maxV, v.V)
	}
	if !seen {
		return out
	}

	span := maxV - minV
	for i, v := range values {
		if !v.Valid {
			continue
		}
		if span == 0 {
			out[i] = Some(0)
			continue
		}
		out[i] = Some((v.V - minV) / span)
	}
	return out
}

// FindMissing yields the dates in [first entry date, asOf] that have no entry.
// The sequence is taken over a snapshot of the dataset and can be iterated more than once.
func FindMissing(d *Dataset, asOf time.Time) iter.Seq[time.Time] {
	first, ok := d.First()
	if !ok {
		return func(func(time.Time) bool) {}
	}

	present := make(map[time.Time]struct{}, d.Len())
	for _, e := range d.Entries() {
		present[e.Date] = struct{}{}
	}
	start := first.Date
	end := Day(asOf)

	return func(yield func(time.Time) bool) {
		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			if _, found := present[day]; found {
				continue
			}
			if !yield(day) {
				return
			}
		}
	}
}
