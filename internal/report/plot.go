package report

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// palette cycles through distinguishable colors for lines and crystals.
var palette = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

// SaveForecastPlot renders the realized evaluation window with each model's
// forecast overlaid.
func SaveForecastPlot(path string, actual []float64, forecasts map[string][]float64) error {
	p := plot.New()
	p.Title.Text = "Forecast vs realized"
	p.X.Label.Text = "evaluation day"
	p.Y.Label.Text = "value"

	actualLine, err := plotter.NewLine(seriesXYs(actual))
	if err != nil {
		return fmt.Errorf("report: actual line: %w", err)
	}
	actualLine.Width = vg.Points(1.5)
	p.Add(actualLine)
	p.Legend.Add("actual", actualLine)

	names := make([]string, 0, len(forecasts))
	for name := range forecasts {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		line, err := plotter.NewLine(seriesXYs(forecasts[name]))
		if err != nil {
			return fmt.Errorf("report: %s line: %w", name, err)
		}
		line.Color = palette[i%len(palette)]
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// SaveClusterPlot renders the first two data columns as a scatter colored by
// crystal assignment.
func SaveClusterPlot(path string, data *mat.Dense, assignments []int) error {
	n, c := data.Dims()
	if c < 2 {
		return fmt.Errorf("report: cluster plot needs at least 2 columns, got %d", c)
	}
	if len(assignments) != n {
		return fmt.Errorf("report: %d assignments for %d rows", len(assignments), n)
	}

	p := plot.New()
	p.Title.Text = "Morse-Smale crystals"
	p.X.Label.Text = "high"
	p.Y.Label.Text = "low"

	byCrystal := map[int]plotter.XYs{}
	for i := 0; i < n; i++ {
		id := assignments[i]
		byCrystal[id] = append(byCrystal[id], plotter.XY{X: data.At(i, 0), Y: data.At(i, 1)})
	}
	ids := make([]int, 0, len(byCrystal))
	for id := range byCrystal {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		s, err := plotter.NewScatter(byCrystal[id])
		if err != nil {
			return fmt.Errorf("report: crystal %d scatter: %w", id, err)
		}
		s.GlyphStyle.Color = palette[id%len(palette)]
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("crystal %d", id), s)
	}

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func seriesXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	return xys
}
