package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/worktime/internal/work"
)

var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorDim    = lipgloss.Color("#928374")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2)

	if title != "" {
		return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return box.Render(content)
}

// Summary renders the lines shown by status, watch and checkout.
func Summary(res work.Result) string {
	var b strings.Builder

	state := StyleGreen.Render("done")
	if res.IsLive {
		state = StyleYellow.Render("live")
	}
	fmt.Fprintf(&b, "Worked:         %s (%s h) %s\n", Duration(res.TotalWorked), Hours(res.TotalWorked), state)

	remaining := StyleGreen.Render("target reached")
	if res.Remaining > 0 {
		remaining = StyleYellow.Render(Duration(res.Remaining))
	}
	fmt.Fprintf(&b, "Remaining:      %s\n", remaining)
	fmt.Fprintf(&b, "Required:       %s\n", Duration(res.EffectiveRequired))
	fmt.Fprintf(&b, "Expected leave: %s\n", StyleHeader.Render(Clock(&res.ExpectedLeave)))

	if res.ActualBreak > 0 {
		fmt.Fprintf(&b, "Break:          %s\n", Duration(res.ActualBreak))
	}
	if res.BreakInfo != nil {
		fmt.Fprintf(&b, "%s\n", StyleDim.Render(fmt.Sprintf(
			"Short break: %s of %s taken, %s credited",
			Duration(res.BreakInfo.StandardBreak-res.BreakInfo.Credit),
			Duration(res.BreakInfo.StandardBreak),
			Duration(res.BreakInfo.Credit),
		)))
	}
	if res.MeetingDuration > 0 {
		fmt.Fprintf(&b, "Meetings:       %s", Duration(res.MeetingDuration))
		if res.OutsideMeetingDuration > 0 {
			fmt.Fprintf(&b, " (%s outside hours)", Duration(res.OutsideMeetingDuration))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Failure renders a calculation error for the terminal.
func Failure(err error) string {
	if kind := work.KindOf(err); kind != "" {
		return StyleRed.Render(FailureMessage(kind))
	}
	return StyleRed.Render(err.Error())
}
