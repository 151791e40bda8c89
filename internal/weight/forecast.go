package weight

import (
	"fmt"
	"time"
)

const (
	// ForecastWindow is the number of most recent entries the estimate uses.
	ForecastWindow = 7

	BadActivity  = 0.1
	GoodActivity = 0.9
)

// Params is the precomputed linear model mapping the blended activity score to weekly weight change.
type Params struct {
	FoodMin   float64 `json:"food_min"`
	FoodRange float64 `json:"food_range"`
	ExerMin   float64 `json:"exer_min"`
	ExerRange float64 `json:"exer_range"`
	W1        float64 `json:"w1"`
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

func (p Params) Validate() error {
	if p.FoodRange == 0 {
		return fmt.Errorf("%w: food_range must not be zero", ErrInvalidParams)
	}
	if p.ExerRange == 0 {
		return fmt.Errorf("%w: exer_range must not be zero", ErrInvalidParams)
	}
	if p.W1 < 0 || p.W1 > 1 {
		return fmt.Errorf("%w: w1 must be in [0, 1], got %v", ErrInvalidParams, p.W1)
	}
	return nil
}

// WeeklyChange evaluates the model at the given blended activity score.
func (p Params) WeeklyChange(activity float64) float64 {
	return p.Intercept + p.Slope*activity
}

// Scenarios holds weekly weight change rates, in pounds, plus the inputs that produced Expected.
type Scenarios struct {
	Expected float64 `json:"expected"`
	Bad      float64 `json:"bad"`
	Good     float64 `json:"good"`

	Food     float64 `json:"food"`
	Exer     float64 `json:"exer"`
	FoodNorm float64 `json:"foodNorm"`
	ExerNorm float64 `json:"exerNorm"`
	Blended  float64 `json:"blended"`
}

// EstimateWeeklyChange uses the last ForecastWindow entries of tail. Food is averaged,
// while exercise is the count of exercised days in the window.
func EstimateWeeklyChange(tail []Entry, p Params) (Scenarios, error) {
	if len(tail) < ForecastWindow {
		return Scenarios{}, &InsufficientDataError{Have: len(tail), Need: ForecastWindow}
	}
	window := tail[len(tail)-ForecastWindow:]

	food, exer := 0.0, 0.0
	for _, e := range window {
		food += float64(e.Food)
		exer += e.ExerValue()
	}
	food /= float64(len(window))

	foodN := (food - p.FoodMin) / p.FoodRange
	exerN := (exer - p.ExerMin) / p.ExerRange
	blended := p.W1*foodN + (1-p.W1)*exerN

	return Scenarios{
		Expected: p.WeeklyChange(blended),
		Bad:      p.WeeklyChange(BadActivity),
		Good:     p.WeeklyChange(GoodActivity),
		Food:     food,
		Exer:     exer,
		FoodNorm: foodN,
		ExerNorm: exerN,
		Blended:  blended,
	}, nil
}

type TrajectoryPoint struct {
	Date  time.Time
	Value float64
}

// Project linearly interpolates, one point per day, from lastValue at start
// to lastValue+rate*numWeeks at start+7*numWeeks days. numWeeks <= 0 yields only the start point.
func Project(start time.Time, lastValue, rate float64, numWeeks int) []TrajectoryPoint {
	start = Day(start)
	if numWeeks <= 0 {
		return []TrajectoryPoint{{Date: start, Value: lastValue}}
	}

	days := 7 * numWeeks
	total := rate * float64(numWeeks)
	points := make([]TrajectoryPoint, 0, days+1)
	for d := 0; d <= days; d++ {
		points = append(points, TrajectoryPoint{
			Date:  start.AddDate(0, 0, d),
			Value: lastValue + total*float64(d)/float64(days),
		})
	}
	return points
}
