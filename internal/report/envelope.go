package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/motionscript/internal/beat"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 5 * vg.Inch
)

var (
	envelopeColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	onsetColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	beatColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	gridColor     = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// EnvelopePlot draws the normalised onset envelope against time in
// milliseconds, with onsets on the curve and beats along the top.
func EnvelopePlot(a *beat.Analysis) (*plot.Plot, error) {
	if a == nil || len(a.Envelope) == 0 || a.FrameRate <= 0 {
		return nil, errors.New("report: analysis has no envelope")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Onset envelope: %.1f BPM (confidence %.2f), %d beats",
		a.BPM, a.Confidence, len(a.Beats))
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Flux"
	p.Y.Min, p.Y.Max = 0, 1.1
	p.Add(plotter.NewGrid())

	frameMs := 1000 / a.FrameRate
	env := make(plotter.XYs, len(a.Envelope))
	for i, v := range a.Envelope {
		env[i] = plotter.XY{X: float64(i) * frameMs, Y: v}
	}
	envLine, err := plotter.NewLine(env)
	if err != nil {
		return nil, fmt.Errorf("envelope line: %w", err)
	}
	envLine.Color = envelopeColor
	envLine.Width = vg.Points(1)
	p.Add(envLine)
	p.Legend.Add("envelope", envLine)

	if len(a.Onsets) > 0 {
		pts := make(plotter.XYs, len(a.Onsets))
		for i, ms := range a.Onsets {
			pts[i] = plotter.XY{X: float64(ms), Y: envelopeAt(a.Envelope, float64(ms)/frameMs)}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("onset markers: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: onsetColor, Radius: vg.Points(2.5), Shape: draw.RingGlyph{}}
		p.Add(sc)
		p.Legend.Add("onsets", sc)
	}

	if len(a.Beats) > 0 {
		for _, g := range a.Grid() {
			l, err := plotter.NewLine(plotter.XYs{{X: float64(g), Y: 0}, {X: float64(g), Y: 1.05}})
			if err != nil {
				return nil, err
			}
			l.Color = gridColor
			l.Width = vg.Points(0.5)
			l.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
			p.Add(l)
		}
		pts := make(plotter.XYs, len(a.Beats))
		for i, ms := range a.Beats {
			pts[i] = plotter.XY{X: float64(ms), Y: 1.05}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("beat markers: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: beatColor, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
		p.Add(sc)
		p.Legend.Add("beats", sc)
	}
	p.Legend.Top = true
	return p, nil
}

func envelopeAt(env []float64, frame float64) float64 {
	i := int(frame + 0.5)
	if i < 0 || i >= len(env) {
		return 0
	}
	return env[i]
}

// WriteEnvelopePNG saves EnvelopePlot to path. The extension selects the
// image format, so .svg and .pdf work too.
func WriteEnvelopePNG(path string, a *beat.Analysis) error {
	p, err := EnvelopePlot(a)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteEnvelope renders EnvelopePlot to w as PNG.
func WriteEnvelope(w io.Writer, a *beat.Analysis) error {
	p, err := EnvelopePlot(a)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
