package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motionscript/internal/beat"
	"github.com/banshee-data/motionscript/internal/funscript"
)

// maxMarkedBeats bounds the beat mark lines drawn on one chart.
const maxMarkedBeats = 2000

// TrackChart builds a line chart of a track's positions over time. When
// data is non-nil, beats are drawn as vertical mark lines and onsets as
// points along the bottom edge.
func TrackChart(track *funscript.Track, data *beat.Data) (*charts.Line, error) {
	if track == nil {
		return nil, errors.New("report: nil track")
	}

	subtitle := fmt.Sprintf("%d actions, %d ms", len(track.Actions), track.DurationMs())
	if data != nil && len(data.Beats) > 0 {
		subtitle += fmt.Sprintf(", %.1f BPM, %d beats", data.BPM, len(data.Beats))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "motionscript " + track.Name, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: track.Name, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 100, Name: "Position"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}, opts.DataZoom{Type: "inside"}),
	)

	points := make([]opts.LineData, len(track.Actions))
	for i, a := range track.Actions {
		points[i] = opts.LineData{Value: []any{a.At, a.Pos}}
	}
	series := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), SymbolSize: 4}),
	}
	if data != nil && len(data.Beats) > 0 {
		marks := make([]opts.MarkLineNameXAxisItem, 0, min(len(data.Beats), maxMarkedBeats))
		for i, b := range data.Beats {
			if i == maxMarkedBeats {
				break
			}
			marks = append(marks, opts.MarkLineNameXAxisItem{Name: fmt.Sprintf("beat %d", i+1), XAxis: b})
		}
		series = append(series,
			charts.WithMarkLineNameXAxisItemOpts(marks...),
			charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
				Symbol:    []string{"none", "none"},
				LineStyle: &opts.LineStyle{Color: "#d62728", Width: 1, Type: "dashed", Opacity: opts.Float(0.4)},
				Label:     &opts.Label{Show: opts.Bool(false)},
			}),
		)
	}
	line.AddSeries(track.Name, points, series...)

	if data != nil && len(data.Onsets) > 0 {
		onsets := make([]opts.ScatterData, len(data.Onsets))
		for i, t := range data.Onsets {
			onsets[i] = opts.ScatterData{Value: []any{t, 0}, SymbolSize: 5}
		}
		scatter := charts.NewScatter()
		scatter.AddSeries("onsets", onsets)
		line.Overlap(scatter)
	}
	return line, nil
}

// WriteTrackHTML renders TrackChart as a standalone HTML page.
func WriteTrackHTML(w io.Writer, track *funscript.Track, data *beat.Data) error {
	line, err := TrackChart(track, data)
	if err != nil {
		return err
	}
	return line.Render(w)
}
