package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/motionscript/internal/audio"
	"github.com/banshee-data/motionscript/internal/beat"
	"github.com/banshee-data/motionscript/internal/funscript"
	"github.com/banshee-data/motionscript/internal/report"
	"github.com/banshee-data/motionscript/internal/store"
)

type beatsFlags struct {
	plot         string
	html         string
	db           string
	project      string
	subdivisions int
	asJSON       bool
}

func newBeatsCmd(a *app) *cobra.Command {
	f := &beatsFlags{}
	cmd := &cobra.Command{
		Use:   "beats <video>",
		Short: "Detect the beat grid of a video's soundtrack",
		Long: "Extract the audio track with ffmpeg, detect onsets and tempo, and fit a beat grid. " +
			"Results can be plotted and stored against a project for beat snapping.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBeats(cmd, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.plot, "plot", "", "write the onset envelope plot to this PNG file")
	cmd.Flags().StringVar(&f.html, "html", "", "write an HTML chart of the project's stroke track and beats")
	cmd.Flags().StringVar(&f.db, "db", "", "database path (defaults to the configured database_path)")
	cmd.Flags().StringVar(&f.project, "project", "", "store the result under this project name (defaults to the video name when --db is set)")
	cmd.Flags().IntVar(&f.subdivisions, "subdivisions", 0, "grid points per beat (defaults to the configured subdivisions)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the beat data as JSON")
	return cmd
}

func (a *app) runBeats(cmd *cobra.Command, f *beatsFlags, video string) error {
	s := a.settings
	src := audio.NewFFmpeg(s.GetFFmpegPath(), s.GetAudioSampleRate(), s.GetExtractTimeout())
	det := beat.NewDetector(src)
	det.Options.Subdivisions = s.GetSubdivisions()
	if f.subdivisions > 0 {
		det.Options.Subdivisions = f.subdivisions
	}
	step := 0
	det.Progress = func(p float64) {
		if int(p*10) > step {
			step = int(p * 10)
			a.logger.Debug().Float64("progress", p).Str("video", video).Msg("beat detection")
		}
	}

	a.logger.Info().Str("video", video).Msg("detecting beats")
	res, err := det.Detect(cmd.Context(), video)
	if errors.Is(err, beat.ErrAudioUnavailable) {
		return fmt.Errorf("%w (is %s installed?)", err, s.GetFFmpegPath())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Data); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%s: %.1f BPM, confidence %.2f, %d beats, %d onsets over %.1fs\n",
			video, res.BPM, res.Confidence, len(res.Beats), len(res.Onsets), float64(res.DurationMs)/1000)
		if res.TempoBPM > 0 || res.IOIBPM > 0 {
			fmt.Fprintf(out, "  autocorrelation %.1f BPM, inter-onset %.1f BPM\n", res.TempoBPM, res.IOIBPM)
		}
	}

	if f.plot != "" {
		if err := report.WriteEnvelopePNG(f.plot, res); err != nil {
			return err
		}
		a.logger.Info().Str("file", f.plot).Msg("wrote envelope plot")
	}

	track := funscript.NewTrack(funscript.DefaultTrack)
	if f.project == "" && f.db != "" {
		f.project = projectName(video)
	}
	if f.project != "" {
		st, err := a.openStore(f.db)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveBeatData(f.project, &res.Data); err != nil {
			return err
		}
		a.logger.Info().Str("project", f.project).Msg("saved beat data")
		if t, err := st.LoadTrack(f.project, funscript.DefaultTrack); err == nil {
			track = t
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	if f.html != "" {
		fh, err := os.Create(f.html)
		if err != nil {
			return err
		}
		if err := report.WriteTrackHTML(fh, track, &res.Data); err != nil {
			fh.Close()
			return err
		}
		if err := fh.Close(); err != nil {
			return err
		}
		a.logger.Info().Str("file", f.html).Msg("wrote track chart")
	}
	return nil
}

// projectName derives a default project name from a video path.
func projectName(video string) string {
	base := filepath.Base(video)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
