package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igcrawler/pkg/auth"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/scraper"
	"igcrawler/pkg/ui"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl every tag for posts newer than its watermark",
	Long: `Crawl reads the tag file, walks each tag's feed from newest to oldest
until it reaches the time of that tag's previous successful crawl, downloads
the images of the new posts and appends them to the archive.

Interrupting a crawl (Ctrl+C) before it finishes leaves the archive, the
image directory and every watermark untouched.`,
	Example: `  # Crawl using tags.txt and the default settings
  igcrawler crawl

  # Collect at most 200 posts per tag from a different tag list
  igcrawler crawl --goal 200 --tags travel.txt

  # Store posts in MongoDB instead of posts.csv
  IGCRAWLER_MONGO_URI=mongodb://localhost:27017 igcrawler crawl --archive mongo`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	addCrawlFlags(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(quiet)

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if chain, err := auth.DefaultChain(log); err != nil {
		log.WithError(err).Warn("Session store unavailable")
	} else if _, err := auth.Apply(&cfg.Instagram, chain, profile); err != nil {
		log.WithError(err).Warn("Failed to load stored session")
	}
	if cfg.Instagram.SessionID == "" {
		printer.Warning("No Instagram session configured; run 'igcrawler auth login' if tag pages require login")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer.Title("igcrawler")
	printer.Info("Tags", cfg.Crawl.TagFile)
	printer.Info("Archive", archiveLabel(cfg.Archive.Backend, cfg.Archive.CSVPath))

	sum, err := scraper.New(cfg, log).Run(ctx)
	notifier := ui.NewNotifier(notify)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			printer.Warning("Interrupted, nothing was merged")
		}
		if nerr := notifier.Notify("igcrawler failed", err.Error()); nerr != nil {
			log.WithError(nerr).Debug("Notification not sent")
		}
		return err
	}

	printer.Panel("Run summary", summaryRows(sum))
	if nerr := notifier.Notify("igcrawler finished", fmt.Sprintf("%d new posts archived", sum.Merge.Archived)); nerr != nil {
		log.WithError(nerr).Debug("Notification not sent")
	}
	logger.WithField("run_id", sum.RunID).Info("Crawl complete")
	return nil
}

func archiveLabel(backend, csvPath string) string {
	if backend == "csv" || backend == "" {
		return csvPath
	}
	return backend
}

func summaryRows(sum *scraper.Summary) []ui.Row {
	rows := []ui.Row{
		{Label: "Run", Value: sum.RunID},
		{Label: "Tags", Value: fmt.Sprint(len(sum.Tags))},
	}
	for _, res := range sum.Results {
		rows = append(rows, ui.Row{
			Label: "  #" + res.Tag,
			Value: fmt.Sprintf("%d posts, stopped on %s", len(res.Posts), res.Reason),
		})
	}
	rows = append(rows,
		ui.Row{Label: "New posts", Value: fmt.Sprint(sum.Collected)},
		ui.Row{Label: "Retried", Value: fmt.Sprint(sum.Pending)},
		ui.Row{Label: "Already archived", Value: fmt.Sprint(sum.Skipped)},
		ui.Row{Label: "Downloaded", Value: fmt.Sprint(sum.Downloaded)},
		ui.Row{Label: "Deferred", Value: fmt.Sprint(sum.Deferred)},
		ui.Row{Label: "Gone", Value: fmt.Sprint(sum.Missing)},
	)
	if sum.Merge != nil {
		rows = append(rows,
			ui.Row{Label: "Archived", Value: fmt.Sprint(sum.Merge.Archived)},
			ui.Row{Label: "Watermarks held", Value: fmt.Sprint(sum.Merge.WatermarksHeld)},
			ui.Row{Label: "Images on disk", Value: fmt.Sprint(sum.Images)},
		)
	}
	rows = append(rows, ui.Row{Label: "Duration", Value: sum.Duration.Round(time.Second).String()})
	return rows
}
