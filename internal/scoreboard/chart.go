package scoreboard

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/saamueldmg/olimpiadas-matematicas/internal/domain"
)

var (
	background = drawing.ColorFromHex("ffffff")
	barColor   = drawing.ColorFromHex("1f4e79")
	textColor  = drawing.ColorFromHex("222222")
)

// RenderPNG draws a bar chart of the teams' current scores for level.
func RenderPNG(level domain.Level, teams []domain.Team) ([]byte, error) {
	if len(teams) == 0 {
		return renderNoData(fmt.Sprintf("Sin equipos en %s", level.Label()))
	}

	top := 0
	bars := make([]chart.Value, 0, len(teams))
	for _, t := range teams {
		if t.Score > top {
			top = t.Score
		}
		bars = append(bars, chart.Value{
			Label: t.Name,
			Value: float64(t.Score),
			Style: chart.Style{FillColor: barColor, StrokeColor: barColor},
		})
	}

	width := 120 * len(bars)
	if width < 480 {
		width = 480
	}
	graph := chart.BarChart{
		Title:      "Puntajes " + level.Label(),
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      width,
		Height:     400,
		BarWidth:   60,
		Background: chart.Style{FillColor: background, Padding: chart.Box{Top: 40}},
		Canvas:     chart.Style{FillColor: background},
		XAxis:      chart.Style{FontColor: textColor},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: textColor},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top + 1)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// renderNoData draws msg on an empty canvas. go-chart refuses to render a chart
// without a visible series, so the placeholder carries a transparent one.
func renderNoData(msg string) ([]byte, error) {
	graph := chart.Chart{
		Width:      400,
		Height:     200,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis:      chart.XAxis{Style: chart.Hidden()},
		YAxis:      chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent},
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, defaults chart.Style) {
				r.SetFont(defaults.Font)
				r.SetFontColor(textColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, cb.Left+(cb.Width()-tb.Width())/2, cb.Top+(cb.Height()+tb.Height())/2)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
