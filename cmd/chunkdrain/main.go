package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssungk/delayio/pkg/delayio"
)

var (
	chunkSize   int
	jitterRange int
	interval    time.Duration
	seed        uint64
	mode        string
	waitTimeout time.Duration
	progress    time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "chunkdrain [file]",
	Short:        "Copy a file or stdin to stdout through a chunked-release proxy",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runDrain,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVarP(&chunkSize, "chunk-size", "c", delayio.DefaultChunkSize, "nominal bytes released per tick")
	flags.IntVarP(&jitterRange, "jitter", "j", delayio.DefaultJitterRange, "maximum deviation from the chunk size")
	flags.DurationVarP(&interval, "interval", "i", delayio.DefaultReleaseInterval, "release tick period")
	flags.Uint64Var(&seed, "seed", 0, "seed of the jitter generator")
	flags.StringVarP(&mode, "mode", "m", modeEvents, "consumer: events or blocking")
	flags.DurationVar(&waitTimeout, "wait-timeout", 5*time.Second, "blocking mode wait timeout")
	flags.DurationVar(&progress, "progress", 0, "log proxy stats at this period (0 disables)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every release")
}

func runDrain(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := delayio.DefaultConfig()
	cfg.ChunkSize = chunkSize
	cfg.JitterRange = jitterRange
	cfg.ReleaseInterval = interval
	cfg.Jitter = delayio.NewRandJitter(seed)

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	d := NewDrainer(cfg, mode, logger)
	d.waitTimeout = waitTimeout
	d.progress = progress
	return d.Run(cmd.Context(), path, os.Stdout)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
