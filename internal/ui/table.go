// Package ui renders ranked opportunities for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/pdj555/job-engine/internal/opportunity"
	"github.com/pdj555/job-engine/internal/ranking"
)

const (
	maxTitleWidth   = 45
	maxCompanyWidth = 20
	topPicks        = 3
)

// RenderTable prints the ranked list as a table: rank, title, company, pay,
// hours, and the $/hour score.
func RenderTable(opps *opportunity.Opportunities) {
	data := pterm.TableData{
		{"#", "Title", "Company", "Pay", "Hrs", "$/hr"},
	}

	for i, opp := range opps.Items {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			titleCell(opp),
			truncate(opp.Company, maxCompanyWidth),
			payCell(opp.AnnualPay),
			hoursCell(opp.WeeklyHours),
			scoreCell(opp.Score),
		})
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// RenderTopPicks prints the leading URLs under the table so the best results
// are one copy-paste away.
func RenderTopPicks(opps *opportunity.Opportunities) {
	top := opps.Top(topPicks)
	if len(top) == 0 {
		return
	}

	pterm.DefaultSection.Println("Top picks")
	for i, opp := range top {
		pterm.Printf("  %d. %s\n", i+1, truncate(opp.Title, 50))
		pterm.FgGray.Printf("     %s\n", opp.URL)
		if opp.Score != nil {
			pterm.FgGreen.Printf("     $%.0f/hr\n", *opp.Score)
		}
	}
}

// RenderWarnings prints the partial-failure summary, one line per warning.
func RenderWarnings(warnings []string) {
	for _, w := range warnings {
		pterm.Warning.Println(w)
	}
}

// RenderResearch prints a deep-research answer in a framed panel.
func RenderResearch(title, body string) {
	pterm.DefaultBox.WithTitle(title).Println(strings.TrimSpace(body))
}

func titleCell(opp *opportunity.Opportunity) string {
	title := truncate(opp.Title, maxTitleWidth)
	if opp.Remote != nil && !*opp.Remote {
		title += pterm.FgRed.Sprint(" (office)")
	}
	for _, flag := range opp.Flags {
		if flag == ranking.FlagOverMaxHours {
			title += pterm.FgYellow.Sprint(" (hours)")
		}
	}
	return title
}

func payCell(pay *float64) string {
	if pay == nil {
		return "?"
	}
	return "$" + humanize.Comma(int64(*pay))
}

func hoursCell(hours *float64) string {
	if hours == nil {
		return "?"
	}
	return fmt.Sprintf("%.0f", *hours)
}

func scoreCell(score *float64) string {
	if score == nil {
		return "?"
	}
	return fmt.Sprintf("$%.0f", *score)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
