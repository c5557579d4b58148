package visualization

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/worktime/internal/archive"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/tracker"
)

const (
	chartWidth   = 600
	chartPadding = 40
)

// WeekSVG draws one bar per day of the week with a dashed line at the daily
// requirement. Days off are drawn in grey.
func WeekSVG(progress *tracker.WeekProgress, daily time.Duration) string {
	height := 300
	plot := float64(height - 2*chartPadding)
	barWidth := float64((chartWidth - 2*chartPadding) / 7)
	dailyHours := daily.Hours()
	maxHours := max(12.0, dailyHours*1.5)

	off := make(map[string]storage.HolidayKind)
	for _, h := range progress.Holidays {
		off[h.Date] = h.Kind
	}

	var bars strings.Builder
	var days []string
	for i := 0; i < 7; i++ {
		day := progress.WeekStart.AddDate(0, 0, i)
		key := storage.FormatDate(day)
		days = append(days, day.Format("Mon"))
		h := progress.DaysWorked[key]

		barHeight := min(h/maxHours*plot, plot)
		x := float64(chartPadding) + float64(i)*barWidth + 5
		y := float64(height-chartPadding) - barHeight

		color := barColor(h, dailyHours)
		if _, ok := off[key]; ok && h == 0 {
			color = "#BDBDBD"
			barHeight = 4
			y = float64(height-chartPadding) - barHeight
		}
		fmt.Fprintf(&bars, `<rect x="%.0f" y="%.0f" width="%.0f" height="%.0f" fill="%s" rx="4"/>
    <text x="%.0f" y="%d" text-anchor="middle" font-size="12" fill="#333">%.1fh</text>
    `, x, y, barWidth-10, barHeight, color, x+barWidth/2-5, int(y)-5, h)
	}

	goalY := float64(height-chartPadding) - dailyHours/maxHours*plot

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">
  <rect width="%d" height="%d" fill="#f5f7fa" rx="10"/>
  <text x="%d" y="24" text-anchor="middle" font-size="18" font-weight="bold" fill="#2c3e50">Week of %s</text>
  <text x="%d" y="%d" text-anchor="middle" font-size="12" fill="#7f8c8d">Total: %.2f/%.2fh | Remaining: %.2fh</text>
  %s
  <line x1="%d" y1="%.0f" x2="%d" y2="%.0f" stroke="#E74C3C" stroke-width="2" stroke-dasharray="5,5"/>
  <text x="%d" y="%.0f" font-size="10" fill="#E74C3C">%.1fh</text>
  %s
  %s
</svg>`,
		chartWidth, height, chartWidth, height,
		chartWidth, height,
		chartWidth/2, progress.WeekStart.Format("Jan 2"),
		chartWidth/2, height-4, progress.TotalHours, progress.TargetHours, progress.RemainingHours,
		bars.String(),
		chartPadding, goalY, chartWidth-chartPadding, goalY,
		chartWidth-chartPadding+4, goalY+3, dailyHours,
		xLabels(days, barWidth, height-chartPadding),
		gridLines(height),
	)
}

// MonthSVG draws the ISO week totals of an archived month.
func MonthSVG(summary *archive.MonthSummary) string {
	height := 360

	weeks := make([]int, 0, len(summary.WeekBreakdown))
	for w := range summary.WeekBreakdown {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	maxHours := 1.0
	for _, w := range weeks {
		maxHours = max(maxHours, summary.WeekBreakdown[w])
	}
	plot := float64(height - 2*chartPadding - 30)
	cell := float64(chartWidth-2*chartPadding) / float64(max(len(weeks), 1))

	var bars strings.Builder
	labels := make([]string, 0, len(weeks))
	for i, w := range weeks {
		h := summary.WeekBreakdown[w]
		barHeight := h / maxHours * plot
		x := float64(chartPadding) + float64(i)*cell + 10
		y := float64(height-chartPadding) - barHeight
		fmt.Fprintf(&bars, `<rect x="%.0f" y="%.0f" width="%.0f" height="%.0f" fill="#3498DB" rx="4"/>
    <text x="%.0f" y="%d" text-anchor="middle" font-size="12" fill="#333">%.1fh</text>
    `, x, y, cell-20, barHeight, x+cell/2-10, int(y)-5, h)
		labels = append(labels, fmt.Sprintf("W%d", w))
	}

	pct := 0.0
	if summary.TargetHours > 0 {
		pct = summary.TotalHours / summary.TargetHours * 100
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">
  <rect width="%d" height="%d" fill="#f5f7fa" rx="10"/>
  <text x="%d" y="24" text-anchor="middle" font-size="18" font-weight="bold" fill="#2c3e50">%s</text>
  <text x="%d" y="44" text-anchor="middle" font-size="12" fill="#7f8c8d">Total: %.2f/%.2fh (%.0f%%) | Days worked: %d | Days off: %.1f</text>
  %s
  %s
</svg>`,
		chartWidth, height, chartWidth, height,
		chartWidth, height,
		chartWidth/2, summary.Month.Format("January 2006"),
		chartWidth/2, summary.TotalHours, summary.TargetHours, pct, summary.DaysWorked, summary.DaysOff,
		bars.String(),
		xLabels(labels, cell, height-chartPadding),
	)
}

func barColor(hours, daily float64) string {
	switch {
	case hours > daily+2:
		return "#FF9800"
	case hours >= daily:
		return "#4CAF50"
	default:
		return "#8BC34A"
	}
}

func xLabels(labels []string, width float64, y int) string {
	var b strings.Builder
	for i, l := range labels {
		x := float64(chartPadding) + float64(i)*width + width/2 - 5
		fmt.Fprintf(&b, `<text x="%.0f" y="%d" text-anchor="middle" font-size="12" fill="#7f8c8d">%s</text>`, x, y+20, l)
	}
	return b.String()
}

func gridLines(height int) string {
	var b strings.Builder
	for i := 1; i <= 4; i++ {
		y := float64(height-chartPadding) - float64(i)/4*float64(height-2*chartPadding)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.0f" x2="%d" y2="%.0f" stroke="#E0E0E0"/>`, chartPadding, y, chartWidth-chartPadding, y)
	}
	return b.String()
}
