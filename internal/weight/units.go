package weight

import (
	"fmt"
	"strings"
)

type Unit string

const (
	UnitLbs Unit = "lbs"
	UnitKgs Unit = "kgs"
)

const LbsPerKg = 2.20462

// ParseUnit accepts lbs/kgs (and lb/kg); empty means pounds.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lbs", "lb":
		return UnitLbs, nil
	case "kgs", "kg":
		return UnitKgs, nil
	}
	return "", fmt.Errorf("unknown unit: %s", s)
}

// FromLbs converts a stored pound value to u.
func (u Unit) FromLbs(v float64) float64 {
	if u == UnitKgs {
		return v / LbsPerKg
	}
	return v
}

// ToLbs converts a value given in u to pounds.
func (u Unit) ToLbs(v float64) float64 {
	if u == UnitKgs {
		return v * LbsPerKg
	}
	return v
}

func (u Unit) Value(v Value) Value {
	if !v.Valid {
		return v
	}
	return Some(u.FromLbs(v.V))
}
