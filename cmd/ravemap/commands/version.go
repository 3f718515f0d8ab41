package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravelab/ravemap/cmd/ravemap/internal/build"
	"github.com/ravelab/ravemap/pkg/cli"
	"github.com/ravelab/ravemap/pkg/rave"
	"github.com/ravelab/ravemap/pkg/reduce"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.String())
		if verbose {
			styles := cli.NewStyles(cli.DefaultTheme)
			var methods []string
			for _, m := range reduce.Methods() {
				methods = append(methods, string(m))
			}
			fmt.Printf("  %s %s\n", styles.Label.Render("go:"), runtime.Version())
			fmt.Printf("  %s %s\n", styles.Label.Render("methods:"), strings.Join(methods, ", "))
			fmt.Printf("  %s %s\n", styles.Label.Render("models:"), strings.Join(rave.Formats(), ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
