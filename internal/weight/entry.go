package weight

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

// MaxFood is the upper bound of the food score scale.
const MaxFood = 10

type Entry struct {
	Date      time.Time
	Weight    float64
	Food      int
	Exercised bool
}

// Day returns the calendar date of t as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date [%s]: %w", s, err)
	}
	return Day(t), nil
}

func (e Entry) Validate() error {
	switch {
	case e.Date.IsZero():
		return fmt.Errorf("%w: date not set", ErrInvalidEntry)
	case math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
		return fmt.Errorf("%w: weight must be a finite number, got %v", ErrInvalidEntry, e.Weight)
	case e.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidEntry, e.Weight)
	case e.Food < 0 || e.Food > MaxFood:
		return fmt.Errorf("%w: food must be in [0, %d], got %d", ErrInvalidEntry, MaxFood, e.Food)
	}
	return nil
}

func (e Entry) ExerValue() float64 {
	if e.Exercised {
		return 1
	}
	return 0
}

func (e Entry) String() string {
	return fmt.Sprintf("%s weight=%.1f food=%d exercised=%t", e.Date.Format(DateLayout), e.Weight, e.Food, e.Exercised)
}
