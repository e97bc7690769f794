package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/config"
)

var queryCmd = &cobra.Command{
	Use:   "query [build-dir] [text]",
	Short: "Ask a built agent a single question",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runQuery(args[0], args[1])
	},
}

func init() {
	RootCmd.AddCommand(queryCmd)
}

func runQuery(buildDir, text string) {
	obs := newObserver()
	defer obs.Close()

	cfg, err := config.FromEnv()
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Invalid configuration")
	}

	eng, _, _, cleanup := openEngine(buildDir, cfg, obs)
	defer cleanup()

	result, err := eng.ProcessQuery(context.Background(), text)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Query failed")
	}

	fmt.Println(result.Response)
	obs.Log().Info().Str("query_id", result.QueryID).Msg("query answered")
}
