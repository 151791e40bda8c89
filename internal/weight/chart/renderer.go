package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultWidth  = 1000
	DefaultHeight = 700

	// number of most recent entries drawn in front of a forecast
	forecastHistory = 28

	margin      = 60.0
	panelGap    = 40.0
	titleHeight = 20.0
)

var errNoData = errors.New("no data to draw")

type point struct {
	x time.Time
	y float64
}

type series struct {
	name   string
	color  string
	dashed bool
	points []point
}

type panel struct {
	title  string
	yLabel string
	series []series
}

type Renderer struct {
	width  int
	height int
	font   *truetype.Font
}

func NewRenderer(width, height int) (*Renderer, error) {
	if width <= 2*margin || height <= 2*margin {
		return nil, fmt.Errorf("chart size too small: %dx%d", width, height)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{
		width:  width,
		height: height,
		font:   f,
	}, nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

// Trend draws the weight with its 7-day average, the blended activity score,
// and the normalized food and exercise averages.
func (r *Renderer) Trend(d weight.EnrichedDataset, unit weight.Unit) ([]byte, error) {
	if len(d.Rows) == 0 {
		return nil, errNoData
	}

	weightSeries := series{name: fmt.Sprintf("Weight (%s)", unit), color: "#1f77b4"}
	avgSeries := series{name: "Weight (7-day avg)", color: "#d62728", dashed: true}
	activitySeries := series{name: "Food & exercise (7-day avg)", color: "#2ca02c"}
	foodSeries := series{name: "Food (7-day avg)", color: "#1f77b4"}
	exerSeries := series{name: "Exercise (7-day avg)", color: "#2ca02c"}

	for _, row := range d.Rows {
		weightSeries.points = append(weightSeries.points, point{row.Date, unit.FromLbs(row.Weight)})
		if row.WeightAvg7.Valid {
			avgSeries.points = append(avgSeries.points, point{row.Date, unit.FromLbs(row.WeightAvg7.V)})
		}
		if row.Activity.Valid {
			activitySeries.points = append(activitySeries.points, point{row.Date, row.Activity.V})
		}
		if row.FoodNorm.Valid {
			foodSeries.points = append(foodSeries.points, point{row.Date, row.FoodNorm.V})
		}
		if row.ExerNorm.Valid {
			exerSeries.points = append(exerSeries.points, point{row.Date, row.ExerNorm.V})
		}
	}

	return r.render([]panel{
		{title: "Weight Trends", yLabel: string(unit), series: []series{weightSeries, avgSeries}},
		{title: "Food and Exercise Average Trends", yLabel: "score", series: []series{activitySeries}},
		{title: "Food and Exercise Trends", yLabel: "scaled", series: []series{foodSeries, exerSeries}},
	})
}

// Forecast draws the recent weight history followed by the three projected trajectories.
func (r *Renderer) Forecast(f weight.Forecast, history []weight.Entry, unit weight.Unit) ([]byte, error) {
	if len(f.Expected) == 0 {
		return nil, errNoData
	}
	if len(history) > forecastHistory {
		history = history[len(history)-forecastHistory:]
	}

	historySeries := series{name: fmt.Sprintf("Weight (%s)", unit), color: "#1f77b4"}
	for _, e := range history {
		historySeries.points = append(historySeries.points, point{e.Date, unit.FromLbs(e.Weight)})
	}

	trajectory := func(name, color string, points []weight.TrajectoryPoint) series {
		s := series{name: name, color: color, dashed: true}
		for _, p := range points {
			s.points = append(s.points, point{p.Date, unit.FromLbs(p.Value)})
		}
		return s
	}

	title := fmt.Sprintf("Forecast, %d weeks (expected %+.2f %s/week)", f.Weeks, unit.FromLbs(f.Scenarios.Expected), unit)
	return r.render([]panel{
		{
			title:  title,
			yLabel: string(unit),
			series: []series{
				historySeries,
				trajectory("Expected", "#ff7f0e", f.Expected),
				trajectory("Bad", "#d62728", f.Bad),
				trajectory("Good", "#2ca02c", f.Good),
			},
		},
	})
}

func (r *Renderer) render(panels []panel) ([]byte, error) {
	xMin, xMax, ok := timeRange(panels)
	if !ok {
		return nil, errNoData
	}

	dc := gg.NewContext(r.width, r.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	panelHeight := (float64(r.height) - 2*margin - panelGap*float64(len(panels)-1)) / float64(len(panels))
	for i, p := range panels {
		top := margin + float64(i)*(panelHeight+panelGap)
		r.drawPanel(dc, p, margin, top, float64(r.width)-2*margin, panelHeight, xMin, xMax)
	}

	dc.SetFontFace(r.face(11))
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawStringAnchored(xMin.Format(weight.DateLayout), margin, float64(r.height)-margin/2, 0, 0.5)
	dc.DrawStringAnchored(xMax.Format(weight.DateLayout), float64(r.width)-margin, float64(r.height)-margin/2, 1, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPanel(dc *gg.Context, p panel, x0, y0, w, h float64, xMin, xMax time.Time) {
	plotTop := y0 + titleHeight
	plotHeight := h - titleHeight

	dc.SetFontFace(r.face(14))
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(p.title, x0+w/2, y0, 0.5, 0.5)

	yMin, yMax := valueRange(p.series)

	// grid and y ticks
	dc.SetFontFace(r.face(10))
	dc.SetLineWidth(1)
	const ticks = 4
	for i := 0; i <= ticks; i++ {
		v := yMin + (yMax-yMin)*float64(i)/ticks
		y := plotTop + plotHeight - plotHeight*float64(i)/ticks
		dc.SetRGBA(0, 0, 0, 0.1)
		dc.DrawLine(x0, y, x0+w, y)
		dc.Stroke()
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), x0-6, y, 1, 0.5)
	}
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), x0-45, plotTop+plotHeight/2)
	dc.DrawStringAnchored(p.yLabel, x0-45, plotTop+plotHeight/2, 0.5, 0.5)
	dc.Pop()

	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(x0, plotTop, w, plotHeight)
	dc.Stroke()

	span := xMax.Sub(xMin).Seconds()
	toX := func(t time.Time) float64 {
		if span == 0 {
			return x0 + w/2
		}
		return x0 + w*t.Sub(xMin).Seconds()/span
	}
	toY := func(v float64) float64 {
		return plotTop + plotHeight - plotHeight*(v-yMin)/(yMax-yMin)
	}

	legendY := plotTop + 12
	for _, s := range p.series {
		if len(s.points) == 0 {
			continue
		}
		dc.SetHexColor(s.color)
		dc.SetLineWidth(2)
		if s.dashed {
			dc.SetDash(6, 4)
		} else {
			dc.SetDash()
		}
		if len(s.points) == 1 {
			dc.DrawCircle(toX(s.points[0].x), toY(s.points[0].y), 3)
			dc.Fill()
		} else {
			for i, pt := range s.points {
				if i == 0 {
					dc.MoveTo(toX(pt.x), toY(pt.y))
					continue
				}
				dc.LineTo(toX(pt.x), toY(pt.y))
			}
			dc.Stroke()
		}
		dc.SetDash()

		dc.DrawLine(x0+8, legendY, x0+28, legendY)
		dc.Stroke()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(s.name, x0+34, legendY, 0, 0.5)
		legendY += 14
	}
}

func timeRange(panels []panel) (time.Time, time.Time, bool) {
	var xMin, xMax time.Time
	found := false
	for _, p := range panels {
		for _, s := range p.series {
			for _, pt := range s.points {
				if !found || pt.x.Before(xMin) {
					xMin = pt.x
				}
				if !found || pt.x.After(xMax) {
					xMax = pt.x
				}
				found = true
			}
		}
	}
	return xMin, xMax, found
}

func valueRange(all []series) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range all {
		for _, pt := range s.points {
			lo = min(lo, pt.y)
			hi = max(hi, pt.y)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}
