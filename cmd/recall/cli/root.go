package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/observe"
)

var (
	verbose  bool
	jsonLogs bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Adaptive memory agent toolkit",
	Long: `Recall builds declarative memory-agent designs into portable,
runnable build directories and serves them over HTTP. An agent answers
queries from three memory tiers: ingested knowledge, dynamic context
files and its own interaction history.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "JSON log output")
}

func newObserver() *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(os.Stderr, verbose)
	}
	return observe.New(os.Stderr, verbose)
}
