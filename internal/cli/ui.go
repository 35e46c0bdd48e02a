package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/uimigrate/pkg/batch"
	"github.com/matzehuels/uimigrate/pkg/ledger"
	"github.com/matzehuels/uimigrate/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	stylePassed = lipgloss.NewStyle().Foreground(colorGreen)
	styleFailed = lipgloss.NewStyle().Foreground(colorRed)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSkipped = "-"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(20)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// =============================================================================
// Migration Output
// =============================================================================

// printUnitReport prints one line per unit disposition.
func printUnitReport(u batch.UnitReport) {
	name := filepath.Base(u.Path)
	dur := StyleDim.Render(u.Duration.Round(time.Millisecond).String())
	switch u.Status {
	case pipeline.UnitSuccess:
		fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + name + " " + dur)
	case pipeline.UnitReviewNeeded:
		fmt.Println(styleIconWarning.Render(iconWarning) + " " + name + " " + StyleWarning.Render("review needed") + " " + dur)
		printDetail("%s", u.Reason)
	case batch.StatusSkipped:
		fmt.Println(StyleDim.Render(iconSkipped + " " + name + " skipped (" + u.Reason + ")"))
	default:
		fmt.Println(styleIconError.Render(iconError) + " " + name + " " + dur)
		printDetail("%s", u.Reason)
	}
}

// printPhase prints the outcome of one scored phase attempt.
func printPhase(phase string, attempt int, successFactor float64, passed bool) {
	score := styleFailed.Render(fmt.Sprintf("%.2f", successFactor))
	if passed {
		score = stylePassed.Render(fmt.Sprintf("%.2f", successFactor))
	}
	printDetail("%s attempt %d: %s", phase, attempt, score)
}

// printStatistics prints ledger statistics.
func printStatistics(s ledger.Statistics) {
	printKeyValue("Processed", StyleNumber.Render(fmt.Sprint(s.TotalProcessed)))
	printKeyValue("Review needed", StyleNumber.Render(fmt.Sprint(s.TotalReviewNeeded)))
	printKeyValue("Failed", StyleNumber.Render(fmt.Sprint(s.TotalFailed)))
	printKeyValue("Skipped", StyleNumber.Render(fmt.Sprint(s.TotalSkipped)))
	printKeyValue("Remaining in queue", StyleNumber.Render(fmt.Sprint(s.RemainingInQueue)))
	printKeyValue("Dependencies", StyleNumber.Render(fmt.Sprint(s.TotalDependenciesResolved)))
	printKeyValue("Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate))
	printKeyValue("Elapsed", (time.Duration(s.ElapsedTimeSeconds * float64(time.Second))).Round(time.Second).String())
}
