package commands

import (
	"github.com/spf13/cobra"

	"github.com/ravelab/ravemap/pkg/cli"
	"github.com/ravelab/ravemap/pkg/rave"
)

var flagProbeFormat string

type probeResult struct {
	Model      string `json:"model" yaml:"model"`
	Dimensions int    `json:"dimensions" yaml:"dimensions"`
}

var probeCmd = &cobra.Command{
	Use:   "probe <model>",
	Short: "Report a model's latent dimensionality",
	Long: `Load a model, encode a second of silence and report how many latent
dimensions it produces.

Example:
  ravemap probe ./models/percussion.rvm -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := rave.ProbeDimensions(args[0])
		if err != nil {
			return err
		}
		return cli.Output(probeResult{Model: args[0], Dimensions: dims}, cli.OutputOptions{
			Format: cli.OutputFormat(flagProbeFormat),
		})
	},
}

func init() {
	probeCmd.Flags().StringVarP(&flagProbeFormat, "output", "o", "yaml", "output format (yaml, json, raw)")
	rootCmd.AddCommand(probeCmd)
}
