package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler parses tool input, calls the service and formats the MCP result.
type Handler struct {
	service weightService
}

func NewHandler(service weightService) *Handler {
	return &Handler{
		service: service,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

type UnitInput struct {
	Unit string `json:"unit,omitempty" jsonschema:"Weight unit of the response: lbs (default) or kgs"`
}

func (h *Handler) GetSummaryTool() func(context.Context, *mcp.CallToolRequest, UnitInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in UnitInput) (*mcp.CallToolResult, any, error) {
		unit, err := weight.ParseUnit(in.Unit)
		if err != nil {
			return errorResult("Invalid unit: use lbs or kgs"), nil, nil
		}
		return jsonResult(h.service.Summary(unit)), nil, nil
	}
}

type EntriesInput struct {
	Last int    `json:"last,omitempty" jsonschema:"Return only the most recent N entries (all when 0)"`
	Unit string `json:"unit,omitempty" jsonschema:"Weight unit of the response: lbs (default) or kgs"`
}

func (h *Handler) GetEntriesTool() func(context.Context, *mcp.CallToolRequest, EntriesInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in EntriesInput) (*mcp.CallToolResult, any, error) {
		if in.Last < 0 {
			return errorResult("Invalid last: must not be negative"), nil, nil
		}
		unit, err := weight.ParseUnit(in.Unit)
		if err != nil {
			return errorResult("Invalid unit: use lbs or kgs"), nil, nil
		}
		return jsonResult(h.service.Entries(in.Last, unit)), nil, nil
	}
}

type MissingInput struct {
	AsOf string `json:"as_of,omitempty" jsonschema:"Last date to check (YYYY-MM-DD), today when empty"`
}

func (h *Handler) GetMissingDatesTool() func(context.Context, *mcp.CallToolRequest, MissingInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in MissingInput) (*mcp.CallToolResult, any, error) {
		var asOf time.Time
		if in.AsOf != "" {
			parsed, err := time.Parse(weight.DateLayout, in.AsOf)
			if err != nil {
				return errorResult("Invalid as_of: use YYYY-MM-DD"), nil, nil
			}
			asOf = parsed
		}
		resp, err := h.service.Missing(asOf)
		if errors.Is(err, weight.ErrAsOfTooFar) {
			return errorResult("Invalid as_of: too far after today"), nil, nil
		}
		if err != nil {
			return errorResult("Error listing missing dates: " + err.Error()), nil, nil
		}
		return jsonResult(resp), nil, nil
	}
}

type ForecastInput struct {
	Weeks int    `json:"weeks,omitempty" jsonschema:"Number of weeks to project (1-10, default 2)"`
	Unit  string `json:"unit,omitempty" jsonschema:"Weight unit of the response: lbs (default) or kgs"`
}

func (h *Handler) GetForecastTool() func(context.Context, *mcp.CallToolRequest, ForecastInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in ForecastInput) (*mcp.CallToolResult, any, error) {
		if in.Weeks < 0 || in.Weeks > weight.MaxForecastWeeks {
			return errorResult("Invalid weeks: use 1-10"), nil, nil
		}
		unit, err := weight.ParseUnit(in.Unit)
		if err != nil {
			return errorResult("Invalid unit: use lbs or kgs"), nil, nil
		}
		forecast, err := h.service.Forecast(in.Weeks, unit)
		if err != nil {
			return errorResult("Error computing forecast: " + err.Error()), nil, nil
		}
		return jsonResult(forecast), nil, nil
	}
}

type AddEntryInput struct {
	Date      string  `json:"date,omitempty" jsonschema:"Entry date (YYYY-MM-DD), today when empty"`
	Weight    float64 `json:"weight,omitempty" jsonschema:"Body weight in the given unit; the last recorded weight when 0"`
	Food      int     `json:"food" jsonschema:"Food score 0-10 for the day"`
	Exercised bool    `json:"exercised" jsonschema:"Whether there was exercise that day"`
	Unit      string  `json:"unit,omitempty" jsonschema:"Unit of the given weight: lbs (default) or kgs"`
}

func (h *Handler) AddEntryTool() func(context.Context, *mcp.CallToolRequest, AddEntryInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in AddEntryInput) (*mcp.CallToolResult, any, error) {
		unit, err := weight.ParseUnit(in.Unit)
		if err != nil {
			return errorResult("Invalid unit: use lbs or kgs"), nil, nil
		}
		resp, err := h.service.AddEntry(ctx, weight.EntryDTO{
			Date:      in.Date,
			Weight:    in.Weight,
			Food:      in.Food,
			Exercised: in.Exercised,
		}, unit)
		if errors.Is(err, weight.ErrConflict) {
			return errorResult("Entry for this date already exists, nothing changed"), nil, nil
		}
		if err != nil {
			return errorResult("Error adding entry: " + err.Error()), nil, nil
		}
		return jsonResult(resp), nil, nil
	}
}
