// Command survey-service runs the survey progress API and offers offline export and
// header-mapping tools over the same configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	surveyDir string
)

var rootCmd = &cobra.Command{
	Use:           "survey-service",
	Short:         "Survey progress and response reconciliation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&surveyDir, "surveys", "", "Survey definition directory (default: SURVEY_DIR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(automapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
