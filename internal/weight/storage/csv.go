package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/2beens/weightcontrol/internal/weight"
)

var csvHeader = []string{"date", "weight", "food", "exer"}

// columnAliases maps legacy column names onto the current ones.
var columnAliases = map[string]string{
	"weight_lbs": "weight",
	"exercised":  "exer",
}

// DecodeEntries reads a CSV with a header row holding at least the date, weight, food and exer
// columns, in any order. Other columns are ignored.
func DecodeEntries(r io.Reader) ([]weight.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty csv, header row missing")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	for _, required := range csvHeader {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	var entries []weight.Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		line, _ := reader.FieldPos(0)
		entry, err := parseRecord(record, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseRecord(record []string, columns map[string]int) (weight.Entry, error) {
	field := func(name string) (string, error) {
		idx := columns[name]
		if idx >= len(record) {
			return "", fmt.Errorf("column %s missing", name)
		}
		return strings.TrimSpace(record[idx]), nil
	}

	dateStr, err := field("date")
	if err != nil {
		return weight.Entry{}, err
	}
	date, err := weight.ParseDate(dateStr)
	if err != nil {
		return weight.Entry{}, err
	}

	weightStr, err := field("weight")
	if err != nil {
		return weight.Entry{}, err
	}
	w, err := strconv.ParseFloat(weightStr, 64)
	if err != nil {
		return weight.Entry{}, fmt.Errorf("parse weight [%s]: %w", weightStr, err)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return weight.Entry{}, fmt.Errorf("parse weight [%s]: not a finite number", weightStr)
	}

	foodStr, err := field("food")
	if err != nil {
		return weight.Entry{}, err
	}
	food, err := parseFood(foodStr)
	if err != nil {
		return weight.Entry{}, err
	}

	exerStr, err := field("exer")
	if err != nil {
		return weight.Entry{}, err
	}
	exercised, err := parseExercised(exerStr)
	if err != nil {
		return weight.Entry{}, err
	}

	return weight.Entry{
		Date:      date,
		Weight:    w,
		Food:      food,
		Exercised: exercised,
	}, nil
}

// parseFood accepts whole numbers written as floats too ("5.0").
func parseFood(s string) (int, error) {
	if food, err := strconv.Atoi(s); err == nil {
		return food, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("parse food [%s]: not a whole number", s)
	}
	return int(f), nil
}

func parseExercised(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes", "y":
		return true, nil
	case "0", "0.0", "false", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("parse exer [%s]: expected true/false, 1/0 or yes/no", s)
}

// EncodeEntries writes entries in the given order under the canonical header.
func EncodeEntries(w io.Writer, entries []weight.Entry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		exer := "0"
		if e.Exercised {
			exer = "1"
		}
		record := []string{
			e.Date.Format(weight.DateLayout),
			strconv.FormatFloat(e.Weight, 'f', -1, 64),
			strconv.Itoa(e.Food),
			exer,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record %s: %w", e.Date.Format(weight.DateLayout), err)
		}
	}
	writer.Flush()
	return writer.Error()
}
