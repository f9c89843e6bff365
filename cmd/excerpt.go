package cmd

import (
	"fmt"

	"github.com/jsphweid/singviz/midi"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	excerptCmd.Flags().Float64("start", 0, "window start in seconds")
	excerptCmd.Flags().Float64("end", 0, "window end in seconds")
	excerptCmd.Flags().StringP("out", "o", "excerpt.mid", "midi file to write")
	rootCmd.AddCommand(excerptCmd)
}

var excerptCmd = &cobra.Command{
	Use:   "excerpt <melody.mid|melody.json>",
	Short: "Writes the notes of a time window to a midi file",
	Long: `Writes every note overlapping [start, end) to a new midi file, shifted so
the window starts at zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetFloat64("start")
		end, _ := cmd.Flags().GetFloat64("end")
		out, _ := cmd.Flags().GetString("out")

		tl, err := loadTimeline(args[0])
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("end") {
			end = tl.Duration()
		}
		if err := midi.WriteExcerpt(tl, start, end, out); err != nil {
			return errors.Wrap(err, "could not write excerpt")
		}
		fmt.Printf("wrote %v\n", out)
		return nil
	},
}
