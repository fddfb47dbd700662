package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"tangled.org/tokentrim.app/tokentrim/bundle"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	matchStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mismatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderVerdicts writes the per-file verdict table of a decode result.
// Styling is applied only when color is set.
func RenderVerdicts(w io.Writer, result *bundle.DecodeResult, color bool) {
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	headers := []string{"#", "FILE", "LANGUAGE", "SIZE", "DIGEST", "VERDICT"}
	rows := make([][]string, 0, len(result.Files))
	for _, f := range result.Files {
		digest := "-"
		if f.Digest != "" && result.DigestAlgorithm != "" && result.DigestAlgorithm != bundle.DigestNone {
			digest = "failed"
			if f.DigestVerified {
				digest = "ok"
			}
		}

		verdict := style(matchStyle, "✓ match")
		if !f.Match {
			verdict = style(mismatchStyle, "✗ mismatch")
		}

		size := FormatBytes(f.RecoveredSize)
		if f.RecoveredSize != f.OriginalSize {
			size = fmt.Sprintf("%s (expected %s)", size, FormatBytes(f.OriginalSize))
		}

		rows = append(rows, []string{
			fmt.Sprintf("%d", f.Index+1),
			f.Filename,
			f.Language,
			size,
			digest,
			verdict,
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	styledHeaders := make([]string, len(headers))
	for i, h := range headers {
		styledHeaders[i] = style(headerStyle, h)
	}
	writeRow(styledHeaders)
	for _, row := range rows {
		writeRow(row)
	}

	summary := fmt.Sprintf("%d file(s), %s recovered, format %s v%d, kind %s",
		result.TotalFiles, FormatBytes(result.TotalBytes()), bundle.FormatName, result.FormatVersion, result.Kind)
	if alg := result.DigestAlgorithm; alg != "" {
		summary += ", digest " + string(alg)
	}
	fmt.Fprintln(w, style(dimStyle, summary))

	if mismatched := len(result.Mismatched()); mismatched > 0 {
		fmt.Fprintln(w, style(mismatchStyle, fmt.Sprintf("%d file(s) did not match their recorded size or digest", mismatched)))
	}
}

// FormatBytes renders a byte count with a decimal unit
func FormatBytes(bytes int64) string {
	const unit = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
