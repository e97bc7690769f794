package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/builder"
	"github.com/recallkit/recallkit/internal/interaction"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [build-dir]",
	Short: "Show what a build directory contains",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInspect(args[0])
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}

func runInspect(buildDir string) {
	obs := newObserver()
	defer obs.Close()

	m, err := builder.LoadManifest(buildDir)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to read manifest")
	}

	fmt.Printf("Design:      %s (%s)\n", m.DesignName, m.DesignID)
	fmt.Printf("Build type:  %s\n", m.BuildType)
	fmt.Printf("Built at:    %s\n", m.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Embedder:    %s\n", m.Embedder)
	fmt.Printf("Chunks:      %d\n", m.TotalChunks)
	for _, src := range m.Sources {
		if src.Skipped {
			fmt.Printf("  %-20s skipped: %s\n", src.SourceID, src.Error)
		} else {
			fmt.Printf("  %-20s %d chunks\n", src.SourceID, src.Chunks)
		}
	}

	repo, err := interaction.OpenSQLite(builder.InteractionsPath(buildDir))
	if err == nil {
		defer repo.Close()
		if n, err := repo.Count(context.Background()); err == nil {
			fmt.Printf("Interactions: %d\n", n)
		}
	}
}
