package cmd

import (
	"fmt"

	"github.com/jsphweid/singviz/audio"
	"github.com/jsphweid/singviz/spectrum"
	"github.com/jsphweid/singviz/util"
	"github.com/jsphweid/singviz/visual"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	reportCmd.Flags().Float64("at", 0, "playback time in seconds")
	reportCmd.Flags().String("melody", "", "melody whose pitch range limits the report and picks the fft size")
	reportCmd.Flags().Int("fft", 0, "fft size, overrides the one picked from the melody")
	reportCmd.Flags().Bool("all", false, "include silent bins")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report <audio.wav|audio.mp3>",
	Short: "Reports per pitch energy at a playback time",
	Long:  `Analyzes the audio leading up to --at and prints the energy of every pitch bin.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetFloat64("at")
		melodyPath, _ := cmd.Flags().GetString("melody")
		fftSize, _ := cmd.Flags().GetInt("fft")
		all, _ := cmd.Flags().GetBool("all")
		return report(args[0], melodyPath, at, fftSize, all)
	},
}

func report(audioPath, melodyPath string, at float64, fftSize int, all bool) error {
	track, err := audio.DecodeFile(audioPath)
	if err != nil {
		return err
	}

	lo, hi := 0, 127
	if melodyPath != "" {
		tl, err := loadTimeline(melodyPath)
		if err != nil {
			return err
		}
		if fftSize == 0 {
			fftSize = cfg.FFTSizeFor(visual.LowestNote(tl))
		}
		lo, hi = visual.BarRange(tl)
	}
	if fftSize == 0 {
		fftSize = cfg.FFTBinCountDefault * 2
	}
	if fftSize&(fftSize-1) != 0 || fftSize < 2 {
		return errors.Errorf("fft size must be a power of two, got %d", fftSize)
	}

	// a single snapshot has no history to smooth against
	a := audio.NewAnalyzer(fftSize)
	a.Smoothing = 0
	frame := a.Analyze(track.Samples, int(at*float64(track.SampleRate)))
	bins := spectrum.Between(spectrum.Bin(frame, float64(track.SampleRate), fftSize), lo, hi)

	fmt.Printf("file: %v (%v Hz, %v)\n", audioPath, track.SampleRate, util.FormatSeconds(track.Duration()))
	fmt.Printf("at: %v, fft size: %v\n", util.FormatSeconds(at), fftSize)
	for _, b := range bins {
		if !all && b.MaxAmplitude == 0 {
			continue
		}
		fmt.Printf("%-4v %3v  display %.3f  max %.3f  bins %v\n",
			util.PitchName(b.Pitch), b.Pitch, b.DisplayAmplitude(), b.MaxAmplitude, b.SampleCount)
	}
	return nil
}
