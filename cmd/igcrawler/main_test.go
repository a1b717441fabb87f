package main

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/internal/crawler"
	"igcrawler/internal/merger"
	"igcrawler/pkg/scraper"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addCrawlFlags(cmd)
	return cmd
}

func TestFlagOverridesOnlyChanged(t *testing.T) {
	logLevel = ""
	cmd := newFlagCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--goal", "25", "--pause", "2s"}))

	flags := flagOverrides(cmd)
	assert.Equal(t, map[string]interface{}{
		"goal":  25,
		"pause": 2 * time.Second,
	}, flags)
}

func TestFlagOverridesGoalZero(t *testing.T) {
	logLevel = ""
	cmd := newFlagCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--goal=0", "--archive", "mongo"}))

	flags := flagOverrides(cmd)
	assert.Equal(t, 0, flags["goal"])
	assert.Equal(t, "mongo", flags["archive"])
}

func TestSummaryRows(t *testing.T) {
	sum := &scraper.Summary{
		RunID: "run-1",
		Tags:  []string{"sun"},
		Results: []*crawler.Result{
			{Tag: "sun", Reason: crawler.StopFeedError, Err: errors.New("x")},
		},
		Downloaded: 3,
		Merge:      &merger.Summary{Archived: 3, WatermarksHeld: 1},
		Images:     12,
	}

	rows := summaryRows(sum)
	values := map[string]string{}
	for _, r := range rows {
		values[r.Label] = r.Value
	}
	assert.Equal(t, "run-1", values["Run"])
	assert.Equal(t, "0 posts, stopped on feed_error", values["  #sun"])
	assert.Equal(t, "3", values["Archived"])
	assert.Equal(t, "1", values["Watermarks held"])
	assert.Equal(t, "12", values["Images on disk"])
}

func TestStatusRows(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := statusRows(&scraper.Status{
		Tags: []scraper.TagStatus{
			{Tag: "sun"},
			{Tag: "sea", Watermark: now.Add(-2 * time.Hour)},
		},
		Pending: 4,
	}, now)

	require.Len(t, rows, 3)
	assert.Equal(t, "never crawled", rows[0].Value)
	assert.Contains(t, rows[1].Value, "2h0m0s ago")
	assert.Equal(t, "4", rows[2].Value)
}
