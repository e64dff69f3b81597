package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/motionscript/internal/axis"
	"github.com/banshee-data/motionscript/internal/calibration"
	"github.com/banshee-data/motionscript/internal/funscript"
	"github.com/banshee-data/motionscript/internal/recorder"
	"github.com/banshee-data/motionscript/internal/stabilize"
	"github.com/banshee-data/motionscript/internal/store"
	"github.com/banshee-data/motionscript/internal/tracking"
)

type trackFlags struct {
	source        string
	duration      time.Duration
	preset        string
	port          string
	broker        string
	topic         string
	record        []string
	project       string
	db            string
	calibration   string
	autoCalibrate bool
	snap          float64
}

func newTrackCmd(a *app) *cobra.Command {
	f := &trackFlags{}
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run a controller tracking session",
		Long: "Poll a 6-DOF controller source through the stabilization and calibration pipeline. " +
			"With --record the mapped positions are recorded into funscript tracks, and with --project " +
			"the result is saved to the database. The A button toggles the stroke axis lock and grip recenters.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrack(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.source, "source", "mock", "controller source: mock, serial or mqtt")
	cmd.Flags().DurationVar(&f.duration, "duration", 5*time.Second, "session length")
	cmd.Flags().StringVar(&f.preset, "preset", "", "stabilization preset (defaults to the configured stabilization_preset)")
	cmd.Flags().StringVar(&f.port, "port", "", "serial port (defaults to the configured serial_port)")
	cmd.Flags().StringVar(&f.broker, "broker", "", "MQTT broker URL (defaults to the configured mqtt_broker)")
	cmd.Flags().StringVar(&f.topic, "topic", "", "MQTT topic (defaults to the configured mqtt_topic)")
	cmd.Flags().StringSliceVar(&f.record, "record", nil, "tracks to record, for example stroke,twist")
	cmd.Flags().StringVar(&f.project, "project", "", "load and save the project with this name")
	cmd.Flags().StringVar(&f.db, "db", "", "database path (defaults to the configured database_path)")
	cmd.Flags().StringVar(&f.calibration, "calibration", "", "named calibration to load, or to save with --auto-calibrate")
	cmd.Flags().BoolVar(&f.autoCalibrate, "auto-calibrate", false, "record the extent of each axis over the session and apply it")
	cmd.Flags().Float64Var(&f.snap, "snap", 0, "snap recorded actions to the project's beat grid with this strength (0-100)")
	return cmd
}

func (a *app) openSource(f *trackFlags) (tracking.Source, error) {
	s := a.settings
	switch strings.ToLower(f.source) {
	case "mock", "sine":
		return tracking.NewSineSource(nil), nil
	case "serial":
		port := f.port
		if port == "" {
			port = s.GetSerialPort()
		}
		if port == "" {
			return nil, errors.New("serial source needs --port or serial_port")
		}
		return tracking.OpenSerial(port, tracking.PortOptions{BaudRate: s.GetSerialBaud()})
	case "mqtt":
		broker, topic := f.broker, f.topic
		if broker == "" {
			broker = s.GetMQTTBroker()
		}
		if topic == "" {
			topic = s.GetMQTTTopic()
		}
		if broker == "" {
			return nil, errors.New("mqtt source needs --broker or mqtt_broker")
		}
		return tracking.DialMQTT(broker, topic, "", 0)
	}
	return nil, fmt.Errorf("unknown source %q: want mock, serial or mqtt", f.source)
}

func (a *app) runTrack(cmd *cobra.Command, f *trackFlags) error {
	s := a.settings
	if f.duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", f.duration)
	}
	if f.snap < 0 || f.snap > 100 {
		return fmt.Errorf("snap strength must be between 0 and 100, got %g", f.snap)
	}
	if f.autoCalibrate && f.calibration == "" {
		return errors.New("--auto-calibrate needs --calibration to name the result")
	}
	preset := f.preset
	if preset == "" {
		preset = s.GetStabilizationPreset()
	}
	if _, err := stabilize.Preset(preset); err != nil {
		return err
	}

	var st *store.Store
	if f.project != "" || f.calibration != "" {
		var err error
		if st, err = a.openStore(f.db); err != nil {
			return err
		}
		defer st.Close()
	}

	cal := calibration.NewState(calibration.DefaultSet())
	if f.calibration != "" && !f.autoCalibrate {
		set, err := st.LoadCalibration(f.calibration)
		if err != nil {
			return err
		}
		cal.Replace(set)
	}

	project := funscript.NewProject("")
	if f.project != "" {
		p, err := st.LoadProject(f.project)
		switch {
		case err == nil:
			project = p
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}
	rec := recorder.New(project, recorder.Settings{
		MinIntervalMs:  s.GetMinIntervalMs(),
		PointReduction: s.GetPointReduction(),
		Epsilon:        s.GetRDPEpsilon(),
	}, s.GetUndoHistory())
	if len(f.record) > 0 {
		if err := rec.SetActiveTracks(f.record...); err != nil {
			return err
		}
	}

	src, err := a.openSource(f)
	if err != nil {
		return err
	}
	ctrl, err := tracking.NewController(src, cal, tracking.Options{
		PollRate: s.GetPollRateHz(),
		Preset:   preset,
	})
	if err != nil {
		src.Close()
		return err
	}
	defer ctrl.Close()

	start := time.Now()
	polls, untracked := 0, 0
	ctrl.OnState(func(cs tracking.ControllerState) {
		polls++
		if !cs.Tracked {
			untracked++
			return
		}
		if rec.Recording() {
			rec.AddSample(int(cs.Time.Sub(start).Milliseconds()), cs.Mapped)
		}
	})
	ctrl.OnButton(tracking.ButtonA, func() {
		locked, err := ctrl.ToggleAxisLock(axis.Y)
		if err == nil {
			a.logger.Info().Bool("locked", locked).Msg("stroke axis lock")
		}
	})
	ctrl.OnButton(tracking.ButtonGrip, func() {
		if err := ctrl.Recenter(); err != nil {
			a.logger.Warn().Err(err).Msg("recenter skipped")
		}
	})

	if f.autoCalibrate {
		ctrl.StartAutoCalibration()
	}
	if len(f.record) > 0 {
		rec.Start(0)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), f.duration)
	defer cancel()
	a.logger.Info().Str("source", f.source).Str("preset", preset).Dur("duration", f.duration).
		Float64("poll_hz", s.GetPollRateHz()).Msg("tracking")
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	ctrl.Stop()

	out := cmd.OutOrStdout()
	last := ctrl.State()
	fmt.Fprintf(out, "%d polls (%d untracked) with preset %s; last mapped %v\n", polls, untracked, ctrl.Preset(), last.Mapped)

	if f.autoCalibrate {
		applied := ctrl.FinishAutoCalibration()
		if err := st.SaveCalibration(f.calibration, cal.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintf(out, "calibration %q saved; axes updated: %s\n", f.calibration, appliedAxes(applied))
	}

	if !rec.Recording() {
		return nil
	}
	segments := rec.Stop()
	for _, name := range rec.ActiveTracks() {
		seg, ok := segments[name]
		if !ok {
			fmt.Fprintf(out, "%s: nothing recorded\n", name)
			continue
		}
		fmt.Fprintf(out, "%s: %d actions over [%d, %d] ms\n", name, len(seg.Actions), seg.Start, seg.End)
	}

	if f.project == "" {
		return nil
	}
	if f.snap > 0 {
		data, err := st.LoadBeatData(f.project)
		switch {
		case err == nil:
			for _, name := range rec.ActiveTracks() {
				n := rec.ApplyBeatSnap(name, &data, f.snap)
				fmt.Fprintf(out, "%s: snapped %d actions to the beat grid\n", name, n)
			}
		case errors.Is(err, store.ErrNotFound):
			a.logger.Warn().Str("project", f.project).Msg("no beat data to snap to; run beats first")
		default:
			return err
		}
	}
	if err := st.SaveProject(f.project, project); err != nil {
		return err
	}
	fmt.Fprintf(out, "project %q saved with %d actions\n", f.project, project.TotalActions())
	return nil
}

func appliedAxes(applied [axis.Count]bool) string {
	var names []string
	for _, a := range axis.All {
		if applied[a] {
			names = append(names, a.String())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
