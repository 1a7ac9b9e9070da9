package report

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderChart renders the total value and its MA5, MA10 and MA20 as a PNG
// line chart. Returns raw PNG bytes.
func RenderChart(title string, rows []ChartRow) ([]byte, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("need at least 2 rows, got %d", len(rows))
	}

	xValues := make([]time.Time, len(rows))
	total := make([]float64, len(rows))
	ma5 := make([]float64, len(rows))
	ma10 := make([]float64, len(rows))
	ma20 := make([]float64, len(rows))

	for i, r := range rows {
		xValues[i] = r.Date
		total[i] = r.Total
		ma5[i] = r.MA5
		ma10[i] = r.MA10
		ma20[i] = r.MA20
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Total",
			Style: chart.Style{
				StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
				StrokeWidth: 2.5,
			},
			XValues: xValues,
			YValues: total,
		},
		averageSeries("MA5", "f59e0b", xValues, ma5),   // amber-500
		averageSeries("MA10", "10b981", xValues, ma10), // emerald-500
		averageSeries("MA20", "ef4444", xValues, ma20), // red-500
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("2006-01-02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func averageSeries(name, hex string, x []time.Time, y []float64) chart.TimeSeries {
	return chart.TimeSeries{
		Name: name,
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex(hex),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: x,
		YValues: y,
	}
}

// SaveChart renders rows to a PNG file at path.
func SaveChart(path, title string, rows []ChartRow) error {
	png, err := RenderChart(title, rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("write chart %s: %w", path, err)
	}
	return nil
}
