// Package cli wires the bookstitch commands: a one-shot run command and a
// long-running API server.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bookstitch",
	Short: "Reconstruct documentation sites into a single Markdown book",
	Long: `bookstitch discovers a documentation site's table of contents through
multiple strategies (sitemap, rendered sidebar, link heuristics, native
Markdown probing, GitHub), fuses them into one hierarchy, and stitches the
page contents into a single ordered Markdown document.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "bookstitch.yaml", "Path to optional YAML config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
