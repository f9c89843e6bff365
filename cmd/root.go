package cmd

import (
	"github.com/jsphweid/singviz/config"
	"github.com/jsphweid/singviz/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// loaded at package init so every command's flag defaults see it
	cfg    = config.Load()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "singviz",
	Short: "Sing along visualizer",
	Long: `singviz scrolls a melody past a playhead and shows which notes the
accompanying audio is hitting, one energy bar per pitch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = logging.OrNop(cfg.Debug)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", cfg.Debug, "debug logging")
	flags.Float64("interval", cfg.IntervalSeconds, "visible time window in seconds")
	flags.Int("fps", cfg.FPS, "frames per second")
	flags.String("media", cfg.MediaDir, "directory media paths are resolved against")
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("interval") {
		cfg.IntervalSeconds, _ = flags.GetFloat64("interval")
	}
	if flags.Changed("fps") {
		cfg.FPS, _ = flags.GetInt("fps")
	}
	if flags.Changed("media") {
		cfg.MediaDir, _ = flags.GetString("media")
	}
}

func Execute() {
	defer func() { _ = logger.Sync() }()
	cobra.CheckErr(rootCmd.Execute())
}
