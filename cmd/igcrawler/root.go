package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/config"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	profile    string
)

var rootCmd = &cobra.Command{
	Use:   "igcrawler",
	Short: "Incremental Instagram hashtag crawler",
	Long: `igcrawler collects new posts for a list of hashtags, downloads their
images and appends them to an archive.

Each tag remembers when it was last crawled, so every run only reads posts
published since the previous successful run. Images that fail to download
are retried on the next run.

Running igcrawler without a subcommand performs a crawl.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCrawl,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.NewPrinter(false).Error("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igcrawler.yaml or $HOME/.igcrawler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "stored session profile to use")

	addCrawlFlags(rootCmd)

	rootCmd.SetVersionTemplate(`igcrawler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// crawl flags are shared by the root command and "crawl"
var (
	goal        int
	tagFile     string
	imageDir    string
	archiveKind string
	pause       time.Duration
	notify      bool
)

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&goal, "goal", "g", 0, "maximum posts collected per tag (0 for no limit)")
	cmd.Flags().StringVarP(&tagFile, "tags", "t", "", "file listing one tag per line")
	cmd.Flags().StringVar(&imageDir, "images", "", "directory receiving downloaded images")
	cmd.Flags().StringVar(&archiveKind, "archive", "", "archive backend (csv, mongo, postgres)")
	cmd.Flags().DurationVar(&pause, "pause", 0, "pause after every image download")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

// flagOverrides collects the flags explicitly set on cmd
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("goal") {
		flags["goal"] = goal
	}
	if changed("tags") {
		flags["tags"] = tagFile
	}
	if changed("images") {
		flags["images"] = imageDir
	}
	if changed("archive") {
		flags["archive"] = archiveKind
	}
	if changed("pause") {
		flags["pause"] = pause
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// loadConfig loads configuration and initializes the global logger from it
func loadConfig(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}
