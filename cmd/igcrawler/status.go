package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igcrawler/pkg/scraper"
	"igcrawler/pkg/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each tag's watermark and the pending download count",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := scraper.ReadStatus(cfg, log)
	if err != nil {
		return err
	}

	ui.NewPrinter(quiet).Panel("Crawl status", statusRows(st, time.Now()))
	return nil
}

func statusRows(st *scraper.Status, now time.Time) []ui.Row {
	var rows []ui.Row
	for _, ts := range st.Tags {
		value := "never crawled"
		if !ts.Watermark.IsZero() {
			value = fmt.Sprintf("%s (%s ago)", ts.Watermark.Format(time.RFC3339), now.Sub(ts.Watermark).Round(time.Minute))
		}
		rows = append(rows, ui.Row{Label: "#" + ts.Tag, Value: value})
	}
	rows = append(rows, ui.Row{Label: "Pending downloads", Value: fmt.Sprint(st.Pending)})
	return rows
}
