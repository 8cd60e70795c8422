package commands

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/HRemonen/ljgrawlr/internal/crawler"
	"github.com/HRemonen/ljgrawlr/internal/post"
	"github.com/HRemonen/ljgrawlr/internal/records"
)

func count(n int) string {
	if n < 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func renderSummary(w io.Writer, s crawler.Summary, dir string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Crawl " + s.RunID)

	t.AppendRows([]table.Row{
		{"Strategy", s.Strategy.String()},
		{"Final state", s.Final.String()},
		{"Listing pages", s.Pages},
		{"Unavailable listings", s.ListingFailures},
		{"Entries attempted", s.Attempted},
		{"Saved", s.Saved},
		{"Already saved", s.Existing},
		{"Filtered by tags", s.Filtered},
		{"Outside window", s.OutOfWindow + s.Pruned},
		{"Parse failures", s.ParseFailures},
		{"Fetch failures", s.FetchFailures},
		{"Write failures", s.WriteFailures},
		{"Files on disk", count(s.FilesOnDisk)},
		{"Output", dir},
		{"Duration", s.Finished.Sub(s.Started).Round(time.Millisecond).String()},
	})

	if s.Halted {
		t.AppendRow(table.Row{"Halted", s.HaltReason})
	}
	if s.Discrepancy {
		t.AppendRow(table.Row{"Discrepancy", "expected " + count(s.FilesBefore+s.Saved) + " files"})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderIndex(w io.Writer, idx records.Index, list *records.ListResult) {
	years := table.NewWriter()
	years.SetOutputMirror(w)
	years.SetTitle("By year")
	years.AppendHeader(table.Row{"Year", "Entries", "First", "Last"})

	total := 0
	for _, y := range idx.Years {
		first, last := y.Entries[0].Record, y.Entries[len(y.Entries)-1].Record
		years.AppendRow(table.Row{
			y.Year,
			len(y.Entries),
			first.Date.Format(post.DateLayout) + " " + first.Title,
			last.Date.Format(post.DateLayout) + " " + last.Title,
		})
		total += len(y.Entries)
	}

	years.AppendFooter(table.Row{"Total", total, "", ""})
	years.SetStyle(table.StyleRounded)
	years.Render()

	tags := table.NewWriter()
	tags.SetOutputMirror(w)
	tags.SetTitle("By tag")
	tags.AppendHeader(table.Row{"Tag", "Entries"})

	for _, tag := range idx.Tags {
		tags.AppendRow(table.Row{tag.Name, len(tag.Entries)})
	}

	tags.AppendFooter(table.Row{"Untagged", idx.Untagged})
	tags.SetStyle(table.StyleRounded)
	tags.Render()

	if len(list.Errors) == 0 {
		return
	}

	errs := table.NewWriter()
	errs.SetOutputMirror(w)
	errs.SetTitle("Unreadable")
	errs.AppendHeader(table.Row{"File", "Error"})

	for _, e := range list.Errors {
		errs.AppendRow(table.Row{e.Filename, e.Err.Error()})
	}

	errs.SetStyle(table.StyleRounded)
	errs.Render()
}
