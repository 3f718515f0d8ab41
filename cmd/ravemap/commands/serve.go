package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ravelab/ravemap/pkg/cache"
	"github.com/ravelab/ravemap/pkg/control"
	"github.com/ravelab/ravemap/pkg/pipeline"
)

var (
	flagServeAddr      string
	flagServeInPort    int
	flagServeOutPort   int
	flagServeReplyHost string
	flagServeCacheDir  string
	flagServeSeed      int64
	flagServeKeepGoing bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the OSC control service",
	Long: `Run the OSC control service.

The service listens for OSC messages on the in port and publishes
results to the out port:

  /rave/process     audio_dir model_path [output_json] [method] [skip]
  /rave/model/info  model_path

Replies:

  /rave/processing/done   output_json
  /rave/processing/error  reason
  /rave/model/dimensions  n  (-1 when the model cannot be read)

Example:
  ravemap serve --in-port 9001 --out-port 9002 --cache-dir ~/.cache/ravemap`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", control.DefaultBindAddr, "listen interface")
	serveCmd.Flags().IntVar(&flagServeInPort, "in-port", control.DefaultInPort, "OSC listen port")
	serveCmd.Flags().IntVar(&flagServeOutPort, "out-port", control.DefaultOutPort, "OSC reply port")
	serveCmd.Flags().StringVar(&flagServeReplyHost, "reply-host", "", "OSC reply host (default: listen interface)")
	serveCmd.Flags().StringVar(&flagServeCacheDir, "cache-dir", "", "latent vector cache directory (empty: no cache)")
	serveCmd.Flags().Int64Var(&flagServeSeed, "seed", 0, "random seed for reduction layouts (0: built-in default)")
	serveCmd.Flags().BoolVar(&flagServeKeepGoing, "keep-going", false, "skip unreadable audio files instead of failing the job")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags win; the config file fills in whatever was left at its
	// default.
	flags := cmd.Flags()
	serveCfg := control.Config{
		BindAddr:  flagServeAddr,
		InPort:    flagServeInPort,
		ReplyHost: flagServeReplyHost,
		OutPort:   flagServeOutPort,
	}
	if !flags.Changed("addr") && cfg.Serve.BindAddr != "" {
		serveCfg.BindAddr = cfg.Serve.BindAddr
	}
	if !flags.Changed("in-port") && cfg.Serve.InPort != 0 {
		serveCfg.InPort = cfg.Serve.InPort
	}
	if !flags.Changed("reply-host") && cfg.Serve.ReplyHost != "" {
		serveCfg.ReplyHost = cfg.Serve.ReplyHost
	}
	if !flags.Changed("out-port") && cfg.Serve.OutPort != 0 {
		serveCfg.OutPort = cfg.Serve.OutPort
	}

	keepGoing := flagServeKeepGoing
	if !flags.Changed("keep-going") {
		keepGoing = cfg.Serve.KeepGoing
	}
	cacheDir := flagServeCacheDir
	if !flags.Changed("cache-dir") && cfg.Pipeline.CacheDir != "" {
		cacheDir = cfg.Pipeline.CacheDir
	}
	seed := flagServeSeed
	if !flags.Changed("seed") && cfg.Pipeline.Seed != 0 {
		seed = cfg.Pipeline.Seed
	}

	runner := &pipeline.Runner{Log: logger, Seed: seed}
	if cacheDir != "" {
		store, err := cache.NewBadger(cache.BadgerOptions{Dir: cacheDir, Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer store.Close()
		runner.Store = store
	}

	srv := &control.Server{
		Config:    serveCfg,
		Runner:    runner,
		Log:       logger,
		KeepGoing: keepGoing,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, control.ErrServerClosed) {
		return err
	}
	logger.Info("draining jobs")
	srv.Wait()
	logger.Info("stopped")
	return nil
}
