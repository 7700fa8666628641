package commands

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/distribution"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/services"
	"github.com/jakechorley/oncall-roster/pkg/db"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

// table renders left-aligned columns sized to their widest cell
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			s := lipgloss.NewStyle().Width(widths[i] + 2)
			if style != nil {
				s = s.Inherit(*style)
			}
			parts[i] = s.Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	var b strings.Builder
	b.WriteString(line(header, &headerStyle))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(line(row, nil))
		b.WriteString("\n")
	}
	return b.String()
}

func statusLabel(success bool) string {
	if success {
		return okStyle.Render("✓ complete")
	}
	return warnStyle.Render("! incomplete")
}

// renderDistribution summarises a run: stages, placements per stage and the shortfall
func renderDistribution(result *services.DistributionResult) string {
	var b strings.Builder
	outcome := result.Outcome

	b.WriteString(titleStyle.Render("Distribution " + statusLabel(outcome.Success)))
	b.WriteString("\n\n")
	if result.Planning != nil {
		fmt.Fprintf(&b, "Planning: %s  %s → %s\n", result.Planning.ID, result.Planning.Start, result.Planning.End)
	}
	fmt.Fprintf(&b, "Seed:     %d\n", outcome.Seed)
	if result.Cleared > 0 {
		fmt.Fprintf(&b, "Cleared:  %d\n", result.Cleared)
	}
	if !result.Persisted {
		b.WriteString(dimStyle.Render("Dry run, nothing stored"))
		b.WriteString("\n")
	}
	if outcome.PreAttributionFailures > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d pre-attributions broke the rest rules", outcome.PreAttributionFailures)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(outcome.Stages))
	for _, st := range outcome.Stages {
		status := okStyle.Render("ok")
		if st.Recovered {
			status = errorStyle.Render("recovered: " + st.Error)
		}
		rows = append(rows, []string{st.Stage.String(), fmt.Sprintf("%d", st.Assigned), st.Duration.Round(time.Millisecond).String(), status})
	}
	b.WriteString(table([]string{"Stage", "Assigned", "Duration", "Status"}, rows))

	b.WriteString(renderShortfall(outcome.Shortfall))
	return b.String()
}

// renderShortfall lists the unfilled slots grouped by post type
func renderShortfall(report *distribution.ShortfallReport) string {
	if report == nil || report.Total() == 0 {
		return "\n" + okStyle.Render("Every working-weekday slot is filled") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d unfilled slots", report.Total())))
	b.WriteString("\n")
	for _, pt := range report.PostTypes() {
		fmt.Fprintf(&b, "  %s: %d\n", pt, report.ByPostType[pt])
	}
	b.WriteString("\n")

	rows := make([][]string, 0, report.Total())
	for _, e := range report.Entries {
		note := ""
		if e.LowAvailability {
			note = warnStyle.Render(fmt.Sprintf("low availability (%.0f%%)", e.Availability*100))
		}
		rows = append(rows, []string{e.Date.Format(model.DateLayout), string(e.PostType), e.Site, e.Period.String(), note})
	}
	b.WriteString(table([]string{"Date", "Post", "Site", "Period", ""}, rows))
	return b.String()
}

// renderCriticalPeriods lists the critical periods, most constrained first
func renderCriticalPeriods(result *services.CriticalPeriodsResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Critical periods (%d staff)", result.Staff)))
	b.WriteString("\n\n")
	if len(result.Periods) == 0 {
		b.WriteString(okStyle.Render("No critical periods"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(result.Periods))
	for _, p := range result.Periods {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02 Mon"),
			p.Period.String(),
			fmt.Sprintf("%.0f%%", p.Unavailability*100),
			fmt.Sprintf("%d", p.Available),
		})
	}
	b.WriteString(table([]string{"Date", "Period", "Unavailable", "Available"}, rows))
	return b.String()
}

// renderCombinations lists every combination with its feasibility
func renderCombinations(report *combinations.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Combination feasibility"))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(report.Entries))
	for _, e := range report.Entries {
		ratio := "∞"
		if !math.IsInf(e.Ratio, 1) {
			ratio = fmt.Sprintf("%.2f", e.Ratio)
		}
		rows = append(rows, []string{
			e.Code,
			e.Tier.String(),
			fmt.Sprintf("%d", e.Opportunities),
			fmt.Sprintf("%d", e.Demand),
			fmt.Sprintf("%d", e.EligibleDoctors),
			ratio,
			statusStyle(e.Status).Render(string(e.Status)),
		})
	}
	b.WriteString(table([]string{"Code", "Tier", "Opportunities", "Demand", "Doctors", "Ratio", "Status"}, rows))
	return b.String()
}

func statusStyle(s combinations.Status) lipgloss.Style {
	switch s {
	case combinations.StatusInsufficient:
		return errorStyle
	case combinations.StatusTight:
		return warnStyle
	default:
		return okStyle
	}
}

// renderPlannings lists stored plannings, newest first
func renderPlannings(plannings []db.Planning) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Stored plannings (%d)", len(plannings))))
	b.WriteString("\n\n")
	if len(plannings) == 0 {
		b.WriteString(dimStyle.Render("No plannings stored"))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(plannings))
	for _, p := range plannings {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.Start + " → " + p.End,
			fmt.Sprintf("%d", p.Seed),
			fmt.Sprintf("%d", p.Unfilled),
			statusLabel(p.Success),
			p.CreatedAt,
		})
	}
	b.WriteString(table([]string{"ID", "Name", "Range", "Seed", "Unfilled", "Status", "Created"}, rows))
	return b.String()
}

// renderReset reports a planning reset
func renderReset(result *services.ResetResult) string {
	return fmt.Sprintf("\n%s\n\nPlanning: %s (%s → %s)\nCleared:  %d assignments\n",
		okStyle.Render("✓ Planning reset"),
		result.Planning.ID, result.Planning.Start, result.Planning.End,
		result.Cleared)
}
