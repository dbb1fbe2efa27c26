package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/pngrepack/pngrepack"
)

const AppName = "pngrepack"

func main() {
	essentials.Must(newRootCommand().Execute())
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   AppName + " [flags]",
		Short: "Losslessly shrink large PNG files by recompressing their image data",
		Long: `Scans a directory for PNG files at or above a size threshold, largest first.
With --apply, each file's IDAT chunks are recompressed with several deflate
strategies, merged into a single chunk, and the file is rewritten in place
only when it gets smaller. Without --apply, the heavy files are only listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runOptimize,
	}

	flags := rootCmd.Flags()
	flags.String("root", ".", "directory to scan for PNG files")
	flags.String("threshold", "1MB", "minimum file size to consider, e.g. 500KB or 2MiB")
	flags.Int("limit", 0, "maximum number of files to handle (0 means no limit)")
	flags.Bool("apply", false, "rewrite files instead of only listing them")
	flags.String("config", "", "path to a YAML config file")
	flags.Bool("debug", false, "log at debug level")

	rootCmd.AddCommand(defineChunksCommand())
	return rootCmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(conf.Debug)

	opts, err := conf.Options()
	if err != nil {
		log.Error("invalid configuration", tint.Err(err))
		return err
	}
	if _, err := pngrepack.Run(opts, log); err != nil {
		log.Error("run failed", tint.Err(err))
		return err
	}
	return nil
}

// loadConfig reads the config file, if any, and applies the
// flags given on the command line on top of it.
func loadConfig(cmd *cobra.Command) (pngrepack.Config, error) {
	flags := cmd.Flags()

	conf := pngrepack.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if conf, err = pngrepack.ReadConfig(path); err != nil {
			return conf, err
		}
	}

	if flags.Changed("root") {
		conf.Root, _ = flags.GetString("root")
	}
	if flags.Changed("threshold") {
		conf.Threshold, _ = flags.GetString("threshold")
	}
	if flags.Changed("limit") {
		conf.Limit, _ = flags.GetInt("limit")
	}
	if flags.Changed("apply") {
		conf.Apply, _ = flags.GetBool("apply")
	}
	if flags.Changed("debug") {
		conf.Debug, _ = flags.GetBool("debug")
	}
	return conf, nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}
