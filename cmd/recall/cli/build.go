package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/builder"
	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/provider"
)

var (
	buildType     string
	embedProvider string
	embedModel    string
	ocrDensity    float64
)

var buildCmd = &cobra.Command{
	Use:   "build [design-file] [output-dir]",
	Short: "Build a design into a portable, runnable directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runBuild(args[0], args[1])
	},
}

func init() {
	RootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildType, "type", "t", "standalone", "Build type (standalone, service)")
	buildCmd.Flags().StringVar(&embedProvider, "embed-provider", "local", "Embedding backend (openai, gemini, ollama, local)")
	buildCmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model identifier")
	buildCmd.Flags().Float64Var(&ocrDensity, "ocr-density", 0, "OCR fallback density threshold (0 = default)")
}

func runBuild(designPath, outputDir string) {
	obs := newObserver()
	defer obs.Close()

	d, err := design.Load(designPath)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to load design")
	}

	if res := design.Validate(d); !res.Valid() {
		fmt.Fprintln(os.Stderr, "Design validation failed:")
		for _, fe := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fe.Path, fe.Message)
		}
		os.Exit(1)
	}

	embedder, err := provider.New(embedProvider, provider.Options{
		APIKey:     os.Getenv("RECALL_PROVIDER_KEY"),
		EmbedModel: embedModel,
	})
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to initialize embedding provider")
	}

	b := builder.New(embedder, embedder.Name(), obs, ocrDensity)
	dir, err := b.Build(context.Background(), d, outputDir, builder.Type(buildType))
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Build failed")
	}

	fmt.Printf("Build complete: %s\n", dir)
}
