package cmd

import (
	"fmt"

	"github.com/jsphweid/singviz/chord"
	"github.com/jsphweid/singviz/timeline"
	"github.com/jsphweid/singviz/util"
	"github.com/spf13/cobra"
)

func init() {
	inspectCmd.Flags().Float64("at", -1, "list the notes sounding at this time in seconds")
	inspectCmd.Flags().Bool("chords", false, "list every chord change")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <melody.mid|melody.json>",
	Short: "Inspects a melody",
	Long:  `Prints a summary of a melody: note count, pitch and octave range and length.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetFloat64("at")
		chords, _ := cmd.Flags().GetBool("chords")

		tl, err := loadTimeline(args[0])
		if err != nil {
			return err
		}
		inspect(tl)
		if at >= 0 {
			if err := inspectAt(tl, at); err != nil {
				return err
			}
		}
		if chords {
			inspectChords(tl)
		}
		return nil
	},
}

func inspect(tl *timeline.Timeline) {
	fmt.Printf("notes: %v\n", tl.Len())
	if tl.Empty() {
		return
	}
	fmt.Printf("pitches: %v (%v) - %v (%v)\n",
		util.PitchName(tl.LowestPitch()), tl.LowestPitch(),
		util.PitchName(tl.HighestPitch()), tl.HighestPitch())
	fmt.Printf("octaves: %v - %v\n", tl.LowestOctave(), tl.HighestOctave())
	fmt.Printf("duration: %v\n", util.FormatSeconds(tl.Duration()))
}

func inspectAt(tl *timeline.Timeline, at float64) error {
	notes, err := tl.Query(at, at)
	if err != nil {
		return err
	}
	fmt.Printf("at %v:\n", util.FormatSeconds(at))
	for _, n := range notes {
		fmt.Printf("  %-4v %v - %v  velocity %.2f\n",
			util.PitchName(n.Pitch), n.Start, n.End, n.Velocity)
	}
	active := chord.Active(notes, at)
	if len(active) > 0 {
		fmt.Printf("chord: %v (%v)\n", chord.Key(active), chordNames(active))
	}
	return nil
}

func inspectChords(tl *timeline.Timeline) {
	for _, c := range chord.Progression(tl.Notes()) {
		fmt.Printf("%v  %-12v %v\n", util.FormatSeconds(c.Offset), c.Key(), chordNames(c.Pitches))
	}
}
