package weight

import "time"

type EntryDTO struct {
	Date      string  `json:"date"`
	Weight    float64 `json:"weight"`
	Food      int     `json:"food"`
	Exercised bool    `json:"exercised"`
}

func NewEntryDTO(e Entry, unit Unit) EntryDTO {
	return EntryDTO{
		Date:      e.Date.Format(DateLayout),
		Weight:    unit.FromLbs(e.Weight),
		Food:      e.Food,
		Exercised: e.Exercised,
	}
}

// Entry converts the DTO back, with the weight given in unit. An empty date means today.
func (dto EntryDTO) Entry(unit Unit, today time.Time) (Entry, error) {
	date := Day(today)
	if dto.Date != "" {
		parsed, err := ParseDate(dto.Date)
		if err != nil {
			return Entry{}, err
		}
		date = parsed
	}
	return Entry{
		Date:      date,
		Weight:    unit.ToLbs(dto.Weight),
		Food:      dto.Food,
		Exercised: dto.Exercised,
	}, nil
}

type EntriesResponse struct {
	Unit    Unit       `json:"unit"`
	Total   int        `json:"total"`
	Entries []EntryDTO `json:"entries"`
}

func NewEntriesResponse(entries []Entry, total int, unit Unit) EntriesResponse {
	resp := EntriesResponse{
		Unit:    unit,
		Total:   total,
		Entries: make([]EntryDTO, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, NewEntryDTO(e, unit))
	}
	return resp
}

type AddEntryResponse struct {
	Result string   `json:"result"`
	Entry  EntryDTO `json:"entry"`
}

type DerivedRowDTO struct {
	EntryDTO
	WeightAvg7 Value `json:"weightAvg7"`
	FoodAvg7   Value `json:"foodAvg7"`
	ExerAvg7   Value `json:"exerAvg7"`
	FoodNorm   Value `json:"foodNorm"`
	ExerNorm   Value `json:"exerNorm"`
	Activity   Value `json:"activity"`
}

type BlendDTO struct {
	Food float64 `json:"food"`
	Exer float64 `json:"exer"`
}

type DerivedResponse struct {
	Unit  Unit            `json:"unit"`
	Blend BlendDTO        `json:"blend"`
	Rows  []DerivedRowDTO `json:"rows"`
}

func NewDerivedResponse(d EnrichedDataset, unit Unit) DerivedResponse {
	resp := DerivedResponse{
		Unit:  unit,
		Blend: BlendDTO{Food: d.Blend.Food, Exer: d.Blend.Exer},
		Rows:  make([]DerivedRowDTO, 0, len(d.Rows)),
	}
	for _, row := range d.Rows {
		resp.Rows = append(resp.Rows, DerivedRowDTO{
			EntryDTO:   NewEntryDTO(row.Entry, unit),
			WeightAvg7: unit.Value(row.WeightAvg7),
			FoodAvg7:   row.FoodAvg7,
			ExerAvg7:   row.ExerAvg7,
			FoodNorm:   row.FoodNorm,
			ExerNorm:   row.ExerNorm,
			Activity:   row.Activity,
		})
	}
	return resp
}

type MissingResponse struct {
	AsOf    string   `json:"asOf"`
	Count   int      `json:"count"`
	Missing []string `json:"missing"`
}

func NewMissingResponse(asOf time.Time, missing []time.Time) MissingResponse {
	resp := MissingResponse{
		AsOf:    Day(asOf).Format(DateLayout),
		Count:   len(missing),
		Missing: make([]string, 0, len(missing)),
	}
	for _, d := range missing {
		resp.Missing = append(resp.Missing, d.Format(DateLayout))
	}
	return resp
}

type TrajectoryPointDTO struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type ForecastResponse struct {
	Unit      Unit                 `json:"unit"`
	Weeks     int                  `json:"weeks"`
	Start     string               `json:"start"`
	Last      float64              `json:"last"`
	Scenarios Scenarios            `json:"scenarios"`
	Expected  []TrajectoryPointDTO `json:"expected"`
	Bad       []TrajectoryPointDTO `json:"bad"`
	Good      []TrajectoryPointDTO `json:"good"`
}

func NewForecastResponse(f Forecast, unit Unit) ForecastResponse {
	scenarios := f.Scenarios
	scenarios.Expected = unit.FromLbs(scenarios.Expected)
	scenarios.Bad = unit.FromLbs(scenarios.Bad)
	scenarios.Good = unit.FromLbs(scenarios.Good)

	return ForecastResponse{
		Unit:      unit,
		Weeks:     f.Weeks,
		Start:     f.Start.Format(DateLayout),
		Last:      unit.FromLbs(f.Last),
		Scenarios: scenarios,
		Expected:  trajectoryDTO(f.Expected, unit),
		Bad:       trajectoryDTO(f.Bad, unit),
		Good:      trajectoryDTO(f.Good, unit),
	}
}

func trajectoryDTO(points []TrajectoryPoint, unit Unit) []TrajectoryPointDTO {
	out := make([]TrajectoryPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, TrajectoryPointDTO{
			Date:  p.Date.Format(DateLayout),
			Value: unit.FromLbs(p.Value),
		})
	}
	return out
}

type SummaryResponse struct {
	Unit       Unit   `json:"unit"`
	Source     string `json:"source"`
	Version    uint64 `json:"version"`
	Entries    int    `json:"entries"`
	FirstDate  string `json:"firstDate,omitempty"`
	LastDate   string `json:"lastDate,omitempty"`
	Missing    int    `json:"missing"`
	LastWeight Value  `json:"lastWeight"`
	WeightAvg7 Value  `json:"weightAvg7"`
	Activity   Value  `json:"activity"`
}

func NewSummaryResponse(s Summary, source string, version uint64, unit Unit) SummaryResponse {
	resp := SummaryResponse{
		Unit:       unit,
		Source:     source,
		Version:    version,
		Entries:    s.Entries,
		Missing:    s.Missing,
		LastWeight: unit.Value(s.LastWeight),
		WeightAvg7: unit.Value(s.WeightAvg7),
		Activity:   s.Activity,
	}
	if s.Entries > 0 {
		resp.FirstDate = s.FirstDate.Format(DateLayout)
		resp.LastDate = s.LastDate.Format(DateLayout)
	}
	return resp
}
