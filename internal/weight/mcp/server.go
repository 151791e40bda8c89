package mcp

import (
	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type NewServerParams struct {
	Analysis *weight.Analysis
	// AllowWrites registers the add_weight_entry tool.
	AllowWrites bool
	Version     string
}

// NewServer builds an MCP server with the weight tools: summary, entries, missing dates,
// forecast and (optionally) adding an entry.
func NewServer(params NewServerParams) *mcp.Server {
	h := NewHandler(NewAnalysisService(params.Analysis))

	version := params.Version
	if version == "" {
		version = "1.0.0"
	}
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "weightcontrol",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weight_summary",
		Description: "Returns an overview of the weight dataset: entry count, first/last date, number of days without an entry, last weight and its 7-day average, and the latest blended food/exercise activity score.",
	}, h.GetSummaryTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weight_entries",
		Description: "Returns daily entries (date, weight, food score 0-10, exercised) oldest first. Optional: last (most recent N only), unit (lbs or kgs).",
	}, h.GetEntriesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_missing_dates",
		Description: "Returns the dates between the first entry and as_of (YYYY-MM-DD, default today) that have no entry. Use to see which days still need to be logged.",
	}, h.GetMissingDatesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weight_forecast",
		Description: "Projects the weight for the next weeks (1-10, default 2) from the last 7 entries: expected weekly change plus a bad (low activity) and a good (high activity) scenario, with day-by-day trajectories. Optional: unit (lbs or kgs).",
	}, h.GetForecastTool())

	if params.AllowWrites {
		mcp.AddTool(s, &mcp.Tool{
			Name:        "add_weight_entry",
			Description: "Adds the entry for one day (date defaults to today, weight to the last recorded one). Fails without changes if the date already has an entry.",
		}, h.AddEntryTool())
	}

	return s
}
