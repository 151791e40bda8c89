package weight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

var paramKeys = []string{"food_min", "food_range", "exer_min", "exer_range", "w1", "intercept", "slope"}

func LoadParams(path string) (Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return Params{}, fmt.Errorf("%w: open %s: %w", ErrInvalidParams, path, err)
	}
	defer f.Close()

	p, err := ParseParams(f)
	if err != nil {
		return Params{}, fmt.Errorf("params %s: %w", path, err)
	}
	return p, nil
}

// ParseParams reads a flat JSON object holding exactly the seven numeric model keys.
func ParseParams(r io.Reader) (Params, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Params{}, fmt.Errorf("%w: read: %w", ErrInvalidParams, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	var missing, unknown []string
	for _, k := range paramKeys {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range fields {
		if !slices.Contains(paramKeys, k) {
			unknown = append(unknown, k)
		}
	}
	if len(missing) > 0 {
		return Params{}, fmt.Errorf("%w: missing keys: %s", ErrInvalidParams, strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return Params{}, fmt.Errorf("%w: unknown keys: %s", ErrInvalidParams, strings.Join(unknown, ", "))
	}

	for _, k := range paramKeys {
		value := bytes.TrimSpace(fields[k])
		var f float64
		if string(value) == "null" || json.Unmarshal(value, &f) != nil {
			return Params{}, fmt.Errorf("%w: key %s is not a number", ErrInvalidParams, k)
		}
	}

	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
