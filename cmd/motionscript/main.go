// Command motionscript analyses video soundtracks for beats and drives
// controller tracking sessions that record motion tracks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banshee-data/motionscript/internal/config"
	"github.com/banshee-data/motionscript/internal/monitoring"
	"github.com/banshee-data/motionscript/internal/store"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded settings.
type app struct {
	configPath string
	logLevel   string
	settings   *config.Settings
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "motionscript",
		Short:         "Beat-aware motion script authoring",
		Long:          "motionscript detects the beat grid of a video's soundtrack and records controller motion into funscript tracks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "settings file (.json or .yaml); defaults to "+config.DefaultConfigPath+" when present")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	root.AddCommand(
		newBeatsCmd(a),
		newTrackCmd(a),
		newPresetsCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.settings, err = config.Load(a.configPath)
	} else {
		a.settings, err = config.LoadOptional(config.DefaultConfigPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := a.settings.GetLogLevel()
	if a.logLevel != "" {
		level = a.logLevel
	}
	stderr := cmd.ErrOrStderr()
	a.logger = monitoring.Setup(level, stderr, true)
	monitoring.SetLogWriters(monitoring.WritersForLevel(level, stderr))
	return nil
}

// openStore opens the database named by path, or the configured default
// when path is empty.
func (a *app) openStore(path string) (*store.Store, error) {
	if path == "" {
		path = a.settings.GetDatabasePath()
	}
	return store.Open(path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
