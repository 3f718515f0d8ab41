package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ravelab/ravemap/cmd/ravemap/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ravemap",
	Short: "Map audio through RAVE latent space to 2D coordinates",
	Long: `ravemap - map folders of audio through a RAVE model's latent space
and project the per-file latent vectors onto 2D coordinates.

Commands:
  serve     Run the OSC control service
  process   Process a folder of audio files once
  probe     Report a model's latent dimensionality
  version   Show version information

Reduction methods: pca, tsne, umap.

Configuration is read from the OS config directory:
  macOS:   ~/Library/Application Support/ravemap/config.yaml
  Linux:   ~/.config/ravemap/config.yaml
  Windows: %AppData%/ravemap/config.yaml

The RAVEMAP_CONFIG environment variable or the --config flag override
the location; flags override the file.

Examples:
  # Run the service with the Max/MSP default ports
  ravemap serve --in-port 9001 --out-port 9002

  # One-shot processing without the service
  ravemap process ./drums ./models/percussion.rvm --method umap

  # Inspect a model
  ravemap probe ./models/percussion.rvm -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: OS config dir)")
}

// loadConfig loads the configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// newLogger builds the process logger; --verbose enables debug level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
