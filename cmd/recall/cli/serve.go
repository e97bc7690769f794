package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/builder"
	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/engine"
	"github.com/recallkit/recallkit/internal/interaction"
	"github.com/recallkit/recallkit/internal/knowledge"
	"github.com/recallkit/recallkit/internal/observe"
	"github.com/recallkit/recallkit/internal/provider"
	"github.com/recallkit/recallkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [build-dir]",
	Short: "Serve a built agent over HTTP",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runServe(args[0])
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(buildDir string) {
	obs := newObserver()
	defer obs.Close()

	cfg, err := config.FromEnv()
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Invalid configuration")
	}

	eng, repo, d, cleanup := openEngine(buildDir, cfg, obs)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if d.MemoryPolicy.Enabled && repo != nil {
		age := time.Duration(d.MemoryPolicy.RetentionDays) * 24 * time.Hour
		sweeper := interaction.NewSweeper(repo, obs, age, 0)
		sweeper.Start(ctx)
		defer sweeper.Wait()
	}

	srv := server.New(eng, cfg, obs)
	if err := srv.ListenAndServe(ctx); err != nil {
		obs.Log().Fatal().Err(err).Msg("Service failed")
	}
}

// openEngine wires an engine from a build directory and the resolved
// runtime configuration.
func openEngine(buildDir string, cfg config.Config, obs *observe.Observer) (*engine.Engine, interaction.Repository, *design.Design, func()) {
	d, err := builder.LoadDesign(buildDir)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to load built design")
	}

	know, err := knowledge.Open(builder.IndexDir(buildDir), d.Retrieval.Metric)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to open vector index")
	}

	prov := newProvider(cfg, obs)

	var repo interaction.Repository
	if d.MemoryPolicy.Enabled {
		sqlRepo, err := interaction.OpenSQLite(builder.InteractionsPath(buildDir))
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to open interaction store")
		}
		repo = sqlRepo
	}

	eng := engine.New(d, know, repo, prov, obs)
	cleanup := func() {
		if repo != nil {
			repo.Close()
		}
	}
	return eng, repo, d, cleanup
}

func newProvider(cfg config.Config, obs *observe.Observer) provider.Provider {
	opts := provider.Options{
		APIKey:     cfg.ProviderKey,
		Model:      cfg.Model,
		EmbedModel: cfg.EmbedModel,
	}

	gen, err := provider.New(cfg.Provider, opts)
	if err != nil {
		obs.Log().Fatal().Str("provider", cfg.Provider).Err(err).Msg("Failed to initialize provider")
	}

	if cfg.EmbedProvider == cfg.Provider {
		return gen
	}

	emb, err := provider.New(cfg.EmbedProvider, opts)
	if err != nil {
		obs.Log().Fatal().Str("provider", cfg.EmbedProvider).Err(err).Msg("Failed to initialize embedding provider")
	}
	return provider.NewSplit(gen, emb)
}
