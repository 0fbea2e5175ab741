package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func formatScore(current int, previous *int) string {
	if previous == nil {
		return strconv.Itoa(current)
	}
	return fmt.Sprintf("%d (%+d)", current, current-*previous)
}

func formatFamilies(families []domain.Family) string {
	if len(families) == 0 {
		return "-"
	}
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, string(f))
	}
	return strings.Join(names, ",")
}

func formatUSD(v float64) string {
	return fmt.Sprintf("$%.4f", v)
}

func renderScanResult(w io.Writer, r *domain.ScanResult) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Client", r.ClientID},
		{"Scan", r.ScanID.String()},
		{"Health", formatScore(r.HealthScore, r.PreviousHealthScore)},
		{"Alerts", r.AlertCount},
		{"Tasks created", r.TasksCreated},
		{"Unavailable", formatFamilies(r.UnavailableFamilies)},
		{"Cost", formatUSD(r.TotalCostUSD)},
	})
	if r.TaskError != "" {
		t.AppendRow(table.Row{"Task error", r.TaskError})
	}
	t.Render()
}

func renderBatchResult(w io.Writer, r *domain.BatchResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Client", "Status", "Health", "Alerts", "Tasks", "Cost", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	var total float64
	for _, outcome := range r.Results {
		if !outcome.Success || outcome.Summary == nil {
			t.AppendRow(table.Row{outcome.ClientID, "failed", "", "", "", "", outcome.Error})
			continue
		}
		s := outcome.Summary
		total += s.TotalCostUSD
		t.AppendRow(table.Row{
			outcome.ClientID, "ok",
			formatScore(s.HealthScore, s.PreviousHealthScore),
			s.AlertCount, s.TasksCreated, formatUSD(s.TotalCostUSD), s.TaskError,
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d ok / %d failed", r.Succeeded, r.Failed), "", "", "", "", formatUSD(total), "",
	})
	t.Render()
}

func renderCostSummary(w io.Writer, s *domain.CostSummary) {
	t := newTable(w)
	title := "All clients"
	if s.ClientID != nil {
		title = "Client " + *s.ClientID
	}
	t.SetTitle(fmt.Sprintf("%s since %s", title, s.Since.Format("2006-01-02")))
	t.AppendHeader(table.Row{"Provider", "Calls", "Cache hits", "Hit rate", "Failures", "Cost"})

	for _, p := range s.Providers {
		t.AppendRow(table.Row{
			p.Provider, p.TotalCalls, p.CacheHits,
			fmt.Sprintf("%.1f%%", p.CacheHitRate*100), p.Failures, formatUSD(p.TotalCostUSD),
		})
	}

	t.AppendFooter(table.Row{
		"Total", s.TotalCalls, s.CacheHits, fmt.Sprintf("%.1f%%", s.CacheHitRate*100), "", formatUSD(s.TotalCostUSD),
	})
	t.Render()
}
