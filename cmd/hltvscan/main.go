package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/TobiSchelling/hltvscan/internal/chat"
	"github.com/TobiSchelling/hltvscan/internal/classify"
	"github.com/TobiSchelling/hltvscan/internal/config"
	"github.com/TobiSchelling/hltvscan/internal/control"
	"github.com/TobiSchelling/hltvscan/internal/crawl"
	"github.com/TobiSchelling/hltvscan/internal/database"
	"github.com/TobiSchelling/hltvscan/internal/ingest"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "hltvscan",
	Short:   "HLTV forum hate-speech scanner",
	Long:    "hltvscan crawls HLTV forum sections, scores every post for hate speech and offensive language, and stores the results by natural key.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Logging.Debug() {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(discordCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(resetCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hltvscan", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/hltvscan/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure forums, the classifier and Discord credentials.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and signal status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		end, err := db.EndRequested()
		if err != nil {
			return err
		}
		refresh, err := db.RefreshMinutes()
		if err != nil {
			return err
		}

		fmt.Printf("Data directory: %s\n", cfg.GetDataDir())
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Rows:")
		fmt.Printf("  Forums: %d\n", stats.Forums)
		fmt.Printf("  Authors: %d\n", stats.Authors)
		fmt.Printf("  Threads: %d\n", stats.Threads)
		fmt.Printf("  Posts: %d\n", stats.Posts)
		fmt.Printf("  Flagged posts: %d\n", stats.FlaggedPosts)
		fmt.Println("\nSignals:")
		fmt.Printf("  End: %t\n", end)
		fmt.Printf("  Refresh: %d min\n", refresh)
		return nil
	},
}

// --- scan command ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Crawl the configured forums until stopped",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sc := cfg.Scraper
		scorer, err := classify.New(cfg.Classifier, sc.Timeout())
		if err != nil {
			return err
		}
		fetcher := crawl.NewFetcher(sc.BaseURL, sc.UserAgent, sc.Timeout(), sc.RequestInterval())
		orch := ingest.New(db, fetcher, scorer, sc.ThreadDelay(), sc.ThreadJitter())

		forums := make([]database.Forum, len(sc.Forums))
		for i, f := range sc.Forums {
			forums[i] = database.Forum{Key: f.ID, Name: f.Name}
		}
		if err := orch.RegisterForums(forums); err != nil {
			return fmt.Errorf("registering forums: %w", err)
		}
		if err := db.SeedSignal(database.SignalRefresh, sc.RefreshMinutes); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loop := control.New(db, orch)
		loop.PollInterval = sc.PollInterval()
		fmt.Printf("Scanning %d forum(s). Run 'hltvscan stop' to shut down.\n", len(forums))
		return loop.Run(ctx)
	},
}

// --- discord command ---

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Ingest messages from the configured Discord channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scorer, err := classify.New(cfg.Classifier, cfg.Scraper.Timeout())
		if err != nil {
			return err
		}
		in, err := chat.NewIngester(db, scorer, cfg.Discord.Forum, cfg.Discord.Channels)
		if err != nil {
			return fmt.Errorf("registering channels: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Listening on %d channel(s). Press Ctrl+C to stop.\n", len(cfg.Discord.Channels))
		return chat.RunDiscord(ctx, cfg.Discord.Token, in)
	},
}

// --- signal commands ---

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running scanner to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RequestEnd(true); err != nil {
			return err
		}
		fmt.Println("Shutdown requested. The scanner stops at its next poll.")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [minutes]",
	Short: "Show or set the minutes between refresh cycles",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 0 {
			minutes, err := db.RefreshMinutes()
			if err != nil {
				return err
			}
			fmt.Printf("Refresh: %d min\n", minutes)
			return nil
		}

		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes <= 0 {
			return fmt.Errorf("invalid refresh interval: %s", args[0])
		}
		if err := db.SetSignal(database.SignalRefresh, minutes); err != nil {
			return err
		}
		fmt.Printf("Refresh set to %d min, effective after the current cycle.\n", minutes)
		return nil
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate all tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("reset deletes all scraped data; pass --yes to confirm")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.EnsureSchema(true); err != nil {
			return err
		}
		fmt.Printf("Recreated schema in %s\n", db.Path())
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm destructive reset")
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DBPath())
}
