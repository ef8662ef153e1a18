package lanternreport

import (
	"bytes"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Palette colours the score chart.
type Palette struct {
	Background drawing.Color
	Bar        drawing.Color
	Text       drawing.Color
}

var DefaultPalette = Palette{
	Background: drawing.ColorFromHex("101418"),
	Bar:        drawing.ColorFromHex("f2b134"),
	Text:       drawing.ColorFromHex("e6e6e6"),
}

// RenderScoreChart draws one bar per team in the order given.
func RenderScoreChart(scores []lanterntypes.TeamScore, palette Palette) ([]byte, error) {
	if len(scores) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	top := 1.0
	bars := make([]chart.Value, 0, len(scores))
	for _, sc := range scores {
		v := float64(sc.Points)
		top = max(top, v)
		bars = append(bars, chart.Value{
			Label: sc.Name,
			Value: v,
			Style: chart.Style{
				FillColor:   palette.Bar,
				StrokeColor: palette.Bar,
			},
		})
	}

	graph := chart.BarChart{
		Title:  "Team points",
		Width:  max(400, 120*len(bars)),
		Height: 400,
		TitleStyle: chart.Style{
			FontColor: palette.Text,
		},
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 40},
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.Style{
			FontColor: palette.Text,
		},
		YAxis: chart.YAxis{
			Style: chart.Style{
				FontColor: palette.Text,
			},
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		BarWidth:   60,
		BarSpacing: 40,
		Bars:       bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette Palette) ([]byte, error) {
	const msg = "No teams yet"

	graph := chart.Chart{
		Width:  400,
		Height: 200,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		XAxis: chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{Style: chart.Hidden()},
		// Render needs one visible series; this one draws in transparent ink.
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: drawing.ColorTransparent,
					FillColor:   drawing.ColorTransparent,
				},
				XValues: []float64{0, 1},
				YValues: []float64{0, 1},
			},
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
