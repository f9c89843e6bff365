package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/jsphweid/singviz/audio"
	"github.com/jsphweid/singviz/clock"
	"github.com/jsphweid/singviz/util"
	"github.com/jsphweid/singviz/visual"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	playCmd.Flags().String("audio", "", "wav or mp3 to analyze alongside the melody")
	playCmd.Flags().Float64("from", 0, "start position in seconds")
	playCmd.Flags().Int("cols", 96, "terminal columns to draw")
	playCmd.Flags().Int("rows", 27, "terminal rows to draw")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <melody.mid|melody.json>",
	Short: "Plays a melody in the terminal",
	Long: `Plays a melody in the terminal. With --audio the track is analyzed at the
playhead and drawn as one energy bar per pitch next to the notes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audioPath, _ := cmd.Flags().GetString("audio")
		from, _ := cmd.Flags().GetFloat64("from")
		cols, _ := cmd.Flags().GetInt("cols")
		rows, _ := cmd.Flags().GetInt("rows")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return play(ctx, args[0], audioPath, from, cols, rows)
	},
}

func chordNames(pitches []int) string {
	names := make([]string, len(pitches))
	for i, p := range pitches {
		names[i] = util.PitchName(p)
	}
	return strings.Join(names, " ")
}

// statusLine reads the coordinator's latest frame, so it has to run after
// OnFrame, i.e. from the drawer's flush.
func statusLine(coord *visual.Coordinator, end float64) func() string {
	return func() string {
		f := coord.LastFrame()
		return fmt.Sprintf("%s / %s  %s",
			util.FormatSeconds(f.Elapsed), util.FormatSeconds(end), chordNames(f.Active))
	}
}

func play(ctx context.Context, melodyPath, audioPath string, from float64, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return errors.Errorf("bad terminal size %dx%d", cols, rows)
	}

	tl, err := loadTimeline(melodyPath)
	if err != nil {
		return err
	}

	var track *audio.Track
	if audioPath != "" {
		if track, err = audio.DecodeFile(audioPath); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pos atomic.Uint64
	var playing atomic.Bool
	end := tl.Duration()

	var src visual.Source
	if track != nil {
		fftSize := cfg.FFTSizeFor(visual.LowestNote(tl))
		mon := audio.NewMonitor(track, fftSize, func() (float64, bool) {
			return math.Float64frombits(pos.Load()), playing.Load()
		}, audio.WithLogger(logger))
		src = mon
		end = math.Max(end, track.Duration())
		go mon.Run(ctx)
	}
	// let the last note scroll past the playhead
	end += cfg.IntervalSeconds / 2

	term := visual.NewTerminal(os.Stdout, cfg.Width, cfg.Height, cols, rows)
	coord := visual.NewCoordinator(tl, src, term, nil, visual.Options{
		IntervalSeconds: cfg.IntervalSeconds,
		Width:           cfg.Width,
		Height:          cfg.Height,
		Logger:          logger,
	})
	term.SetStatus(statusLine(coord, end))

	loop := clock.NewLoop(cfg.FPS)
	var clk *clock.Clock
	clk = clock.New(func(elapsed, delta float64) {
		pos.Store(math.Float64bits(elapsed))
		coord.OnFrame(elapsed, delta)

		if elapsed >= end {
			clk.Stop()
			playing.Store(false)
			cancel()
		}
	}, loop)

	logger.Debug("playing",
		zap.String("melody", melodyPath),
		zap.Int("notes", tl.Len()),
		zap.Float64("from", from),
		zap.Float64("end", end))

	if err := loop.Do(func() {
		playing.Store(true)
		clk.Start(from)
	}); err != nil {
		return err
	}

	// clear the screen once, frames then redraw in place
	fmt.Print("\x1b[2J")
	loop.Run(ctx)
	return term.Err()
}
