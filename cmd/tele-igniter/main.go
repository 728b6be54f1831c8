package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/troioi-vn/tele-igniter/internal/bot"
	"github.com/troioi-vn/tele-igniter/internal/catalog"
	"github.com/troioi-vn/tele-igniter/internal/config"
	"github.com/troioi-vn/tele-igniter/internal/dialogue"
	"github.com/troioi-vn/tele-igniter/internal/money"
	"github.com/troioi-vn/tele-igniter/internal/ops"
	"github.com/troioi-vn/tele-igniter/internal/session"
)

var (
	configPath string
	debugMode  bool
	logger     *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "tele-igniter",
		Short: "Telegram ordering front-end for TastyIgniter restaurants",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if debugMode {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the config file")
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "verbose development logging")

	root.AddCommand(runCmd(), setupCmd(), menusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively create or update the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.RunSetup(configPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func menusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menus",
		Short: "Load the catalog and print the menus, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cat, err := loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			for _, loc := range cat.ActiveLocations() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (#%d)\n", loc.Name, loc.ID)
				for _, section := range cat.Menu(loc.ID) {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", section.Category.Name)
					for _, itemID := range section.ItemIDs {
						item, ok := cat.Item(itemID)
						if !ok {
							continue
						}
						fmt.Fprintf(cmd.OutOrStdout(), "    %s  %s\n", item.Name, money.Format(item.Price, item.Currency))
					}
				}
			}
			return nil
		},
	}
}

// loadCatalog does the shared startup sequence: env, config, cache,
// catalog client, first load. A StartupError prints its operator
// guidance before the process exits.
func loadCatalog(ctx context.Context) (*config.Config, *catalog.Client, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("config load failed, run `tele-igniter setup` to create one", zap.String("path", configPath), zap.Error(err))
		return nil, nil, err
	}

	var cache catalog.RequestCache = catalog.NewNoopCache()
	if cfg.CacheEnabled {
		cache, err = catalog.NewDiskCache(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
	}

	cat := catalog.New(catalog.Options{
		BaseURL:     cfg.APIURL,
		Token:       cfg.APIToken,
		LocationIDs: cfg.LocationIDs,
		MaxAttempts: cfg.MaxAttempts,
		Cache:       cache,
	}, logger)

	if err := cat.Load(ctx); err != nil {
		logStartupGuidance(err)
		return nil, nil, err
	}
	return cfg, cat, nil
}

func runBot(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── CATALOG ─────────────────────────
	cfg, cat, err := loadCatalog(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.Int("locations", len(cat.ActiveLocations())),
		zap.Int64s("ids", cfg.LocationIDs),
	)

	// ───────────────────────── SESSIONS ─────────────────────────
	repo, err := session.NewFileRepository(cfg.CacheDir)
	if err != nil {
		return err
	}
	store := session.NewStore(repo, cfg.MaxQuantity, logger)

	// ───────────────────────── DIALOGUE ─────────────────────────
	d := dialogue.New(cfg, cat, store, logger)

	// ───────────────────────── OPS ─────────────────────────
	reload := make(chan struct{}, 1)
	if cfg.OpsListen != "" {
		srv := ops.NewServer(ops.Config{
			ListenAddr: cfg.OpsListen,
			AuthToken:  cfg.OpsToken,
			Reload:     reload,
		}, logger)
		go func() {
			if err := srv.Run(); err != nil {
				logger.Error("ops server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// ───────────────────────── BOT ─────────────────────────
	b, err := bot.New(cfg.TelegramToken, d, reload, logger)
	if err != nil {
		return err
	}
	logger.Info("🚀 bot is running")

	err = b.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	if err != nil {
		logStartupGuidance(err)
	}
	return err
}

// logStartupGuidance prints the operator hints attached to catalog
// connectivity failures.
func logStartupGuidance(err error) {
	var startup *catalog.StartupError
	if errors.As(err, &startup) {
		logger.Error("catalog unavailable", zap.Error(err))
		for _, hint := range startup.Guidance() {
			logger.Error(hint)
		}
	}
}
