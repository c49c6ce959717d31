package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/azargarov/parproc"
	"github.com/azargarov/parproc/internal/blobjob"
	"github.com/azargarov/parproc/internal/distribution"
)

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	return tw
}

func renderSummary(sum parproc.Summary, stats blobjob.Stats) string {
	perItem := parproc.UnknownValue
	if sum.Final.Known {
		perItem = parproc.FormatDuration(sum.Final.PerItem)
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Run", "Value"})
	tw.AppendRows([]table.Row{
		{"Workers", sum.Workers},
		{"Objects", humanize.Comma(int64(sum.Final.Submitted))},
		{"Completed", humanize.Comma(int64(sum.Final.Completed))},
		{"Failed", len(sum.Failed)},
		{"Attempts", humanize.Comma(int64(sum.Attempts))},
		{"Requeued", humanize.Comma(int64(sum.Requeued))},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Copied", humanize.Comma(stats.Copied)},
		{"Skipped (existing)", humanize.Comma(stats.Skipped)},
		{"Missing", humanize.Comma(stats.Missing)},
		{"Bytes", humanize.IBytes(uint64(stats.Bytes))},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Runtime", parproc.FormatDuration(sum.Final.Elapsed)},
		{"Per object", perItem},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderDurations prints the attempt duration histogram, one row per
// bucket.
func renderDurations(d *distribution.Bucketed) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Attempt duration", "Attempts", "Share"})
	for i, lower := range d.Buckets() {
		tw.AppendRow(table.Row{
			formatSeconds(lower) + " - " + formatSeconds(lower+d.Width()),
			d.Count(i),
			fmt.Sprintf("%.1f%%", 100*d.BucketProbability(i)),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// formatSeconds renders a bucket bound with microsecond resolution.
func formatSeconds(sec float64) string {
	return time.Duration(sec * float64(time.Second)).Round(time.Microsecond).String()
}
