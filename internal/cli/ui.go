package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/nixvault/pkg/document"
	"github.com/matzehuels/nixvault/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for counters.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleFailed  = lipgloss.NewStyle().Foreground(colorRed)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
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

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written file.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + value)
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Run Summary
// =============================================================================

// printSummary prints the outcome of a pipeline run.
func printSummary(s *pipeline.Summary, outDir string) {
	fmt.Println()
	fmt.Println(StyleTitle.Render("Summary"))
	printKeyValue("Run", StyleDim.Render(s.RunID))
	printKeyValue("Packages", summaryCounts(s))
	if s.Failed > 0 {
		printKeyValue("Failures", fmt.Sprintf("%s introspection · %s save",
			styleFailed.Render(strconv.Itoa(s.IntrospectFailures)),
			styleFailed.Render(strconv.Itoa(s.SaveFailures))))
	}
	if s.Collisions > 0 {
		printKeyValue("Collisions", StyleWarning.Render(strconv.Itoa(s.Collisions)))
	}
	printKeyValue("Duration", StyleValue.Render(s.Duration.Round(time.Millisecond).String()))
	printKeyValue("Documents", StyleValue.Render(filepath.Join(outDir, document.PackagesDir)))

	if s.Processed < s.Total {
		printWarning("Run stopped after %d of %d packages", s.Processed, s.Total)
		return
	}
	if s.Failed > 0 {
		printNextStep("Show failures", "nixvault docs --repo <tree> --only <package> -v")
	}
}

// summaryCounts formats "N written · M failed · T total".
func summaryCounts(s *pipeline.Summary) string {
	parts := []string{
		StyleNumber.Render(strconv.Itoa(s.Written)) + " written",
	}
	if s.Failed > 0 {
		parts = append(parts, styleFailed.Render(strconv.Itoa(s.Failed))+" failed")
	}
	parts = append(parts, StyleNumber.Render(strconv.Itoa(s.Total))+" total")
	return strings.Join(parts, StyleDim.Render(" · "))
}
