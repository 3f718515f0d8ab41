package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ravelab/ravemap/pkg/cache"
	"github.com/ravelab/ravemap/pkg/cli"
	"github.com/ravelab/ravemap/pkg/control"
	"github.com/ravelab/ravemap/pkg/pipeline"
	"github.com/ravelab/ravemap/pkg/reduce"
)

var (
	flagProcessOut       string
	flagProcessMethod    string
	flagProcessSkip      bool
	flagProcessKeepGoing bool
	flagProcessCacheDir  string
	flagProcessSeed      int64
)

var processCmd = &cobra.Command{
	Use:   "process <audio-dir> <model>",
	Short: "Process a folder of audio files once",
	Long: `Process every WAV file in a folder through the model and write the
latent mapping JSON, without going through the OSC service.

Examples:
  ravemap process ./drums ./models/percussion.rvm
  ravemap process ./vocals ./models/voice.rvm --method umap -o vocals.json
  ravemap process ./field ./models/ambient.rvm --skip-reduction`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&flagProcessOut, "out", "o", "", "output JSON path (default: derived from the model name)")
	processCmd.Flags().StringVarP(&flagProcessMethod, "method", "m", string(control.DefaultMethod), "reduction method (pca, tsne, umap)")
	processCmd.Flags().BoolVar(&flagProcessSkip, "skip-reduction", false, "write raw latent vectors without 2D reduction")
	processCmd.Flags().BoolVar(&flagProcessKeepGoing, "keep-going", false, "skip unreadable audio files instead of failing")
	processCmd.Flags().StringVar(&flagProcessCacheDir, "cache-dir", "", "latent vector cache directory (empty: no cache)")
	processCmd.Flags().Int64Var(&flagProcessSeed, "seed", 0, "random seed for reduction layouts (0: built-in default)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	method, err := reduce.ParseMethod(flagProcessMethod)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	cacheDir := flagProcessCacheDir
	if !flags.Changed("cache-dir") && cfg.Pipeline.CacheDir != "" {
		cacheDir = cfg.Pipeline.CacheDir
	}
	seed := flagProcessSeed
	if !flags.Changed("seed") && cfg.Pipeline.Seed != 0 {
		seed = cfg.Pipeline.Seed
	}

	runner := &pipeline.Runner{Log: logger, Seed: seed}
	if cacheDir != "" {
		store, err := cache.NewBadger(cache.BadgerOptions{Dir: cacheDir, Logger: logger})
		if err != nil {
			return err
		}
		defer store.Close()
		runner.Store = store
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	start := time.Now()
	res, err := runner.Run(ctx, pipeline.Request{
		AudioDir:      args[0],
		ModelPath:     args[1],
		OutputPath:    flagProcessOut,
		Method:        method,
		SkipReduction: flagProcessSkip,
		KeepGoing:     flagProcessKeepGoing,
	})
	if err != nil {
		return err
	}

	for _, f := range res.Failed {
		cli.PrintWarning("skipped %s: %v", f.File, f.Err)
	}

	size := "unknown size"
	if info, err := os.Stat(res.OutputPath); err == nil {
		size = cli.FormatBytes(info.Size())
	}
	cli.PrintSuccess("wrote %s (%s, %d files, %s)",
		res.OutputPath, size, len(res.Files)-len(res.Failed), cli.FormatDuration(time.Since(start)))
	return nil
}
