// Package report prints run progress and the final generation summary.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var ruleColor = color.New(color.FgBlue, color.Bold)

// Banner prints a colored section rule before the run loop starts.
func Banner(w io.Writer, title string) {
	fmt.Fprintln(w)
	ruleColor.Fprintf(w, "────── %s ──────\n", title)
}

// Pair reports one (foreground, background) composition about to be
// repainted. background is the scene file stem, or "Noise" for synthetic
// noise backgrounds.
func Pair(w io.Writer, idx, total int, imageID, background, phrase, caption string) {
	fmt.Fprintf(w, "> [%3d/%3d] Create background:\n", idx, total)
	fmt.Fprintf(w, "  - Image id: %s\n", imageID)
	fmt.Fprintf(w, "  - Background image: %s\n", background)
	fmt.Fprintf(w, "  - Background prompt: %s\n", phrase)
	fmt.Fprintf(w, "  - Repainting prompt: %s\n", caption)
}

// Summary prints the final counts after a completed run.
func Summary(w io.Writer, generated int, manifestPath string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Images generated:  %d\n", generated)
	fmt.Fprintf(w, "Manifest:          %s\n", manifestPath)
}
