package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/philipparndt/stp2stl/internal/pipeline"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// maxListedIDs bounds the face and shape ids printed per input
const maxListedIDs = 10

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}

func printResult(w io.Writer, res *pipeline.Result) {
	marker := successStyle.Render("✓")
	if res.Status() == pipeline.StatusWarnings {
		marker = warningStyle.Render("!")
	}
	outputs := make([]string, len(res.Outputs))
	for i, o := range res.Outputs {
		outputs[i] = fmt.Sprintf("%s (%s)", filepath.Base(o), fileSize(o))
	}
	fmt.Fprintf(w, "%s %s → %s\n", marker, titleStyle.Render(res.Input), strings.Join(outputs, ", "))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %s triangles, %s vertices, %d/%d shapes, %d/%d faces, %s",
		humanize.Comma(int64(res.Triangles)),
		humanize.Comma(int64(res.Vertices)),
		res.Shapes-res.FailedShapes, res.Shapes,
		res.Faces-res.FailedFaces, res.Faces,
		res.Elapsed.Round(time.Millisecond),
	)))
	if res.Dropped > 0 || res.Welded > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %s degenerate triangles dropped, %s vertices welded",
			humanize.Comma(int64(res.Dropped)), humanize.Comma(int64(res.Welded)))))
	}

	if len(res.Warnings) == 0 {
		return
	}
	ids := res.AffectedIDs()
	listed := ids
	if len(listed) > maxListedIDs {
		listed = listed[:maxListedIDs]
	}
	line := fmt.Sprintf("  %s: %s", english.Plural(len(res.Warnings), "warning", "warnings"), strings.Join(listed, ", "))
	if len(ids) > len(listed) {
		line += fmt.Sprintf(" and %d more", len(ids)-len(listed))
	}
	fmt.Fprintln(w, warningStyle.Render(line))
}

func printBatch(w io.Writer, batch *pipeline.Batch) {
	for _, res := range batch.Results {
		printResult(w, res)
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), f.Error())
	}

	total := len(batch.Results) + len(batch.Failures)
	if total > 1 || len(batch.Failures) > 0 {
		summary := fmt.Sprintf("Done. %d of %s converted.", len(batch.Results), english.Plural(total, "file", "files"))
		switch batch.Status() {
		case pipeline.StatusOK:
			fmt.Fprintln(w, successStyle.Render(summary))
		case pipeline.StatusWarnings:
			fmt.Fprintln(w, warningStyle.Render(summary))
		default:
			fmt.Fprintln(w, errorStyle.Render(summary))
		}
	}
}
