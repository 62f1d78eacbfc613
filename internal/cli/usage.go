package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/docforge/internal/metrics"
)

var opTitles = map[string]string{
	metrics.OpCompletion: "LLM Completion",
	metrics.OpGenerate:   "Agent Generate",
	metrics.OpEdit:       "Agent Edit",
	metrics.OpStoreSave:  "Store Save",
}

// printUsage displays the statistics collected during this run.
func printUsage(w io.Writer, snap metrics.Snapshot) {
	if len(snap.Ops) == 0 {
		return
	}
	fmt.Fprintf(w, "Usage (%.1f seconds)\n", snap.UptimeSeconds)
	fmt.Fprintf(w, "═══════════════════════════════════════\n")

	for _, name := range snap.Names() {
		op := snap.Ops[name]
		title, ok := opTitles[name]
		if !ok {
			title = name
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		printOpStats(w, op)
		printTokenStats(w, op)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Total: %dms", op.Count, op.TotalTimeMs)
	if op.Failures > 0 {
		fmt.Fprintf(w, ", Failures: %d", op.Failures)
	}
	fmt.Fprintln(w)
	if op.Count > 0 {
		fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
			op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}

// printTokenStats displays token statistics if available.
func printTokenStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Fprintf(w, "  Tokens In:  %d total", *op.TotalInputTokens)
	if op.AvgInputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgInputTokens)
	}
	if op.MinInputTokens != nil && op.MaxInputTokens != nil {
		fmt.Fprintf(w, ", min %d, max %d", *op.MinInputTokens, *op.MaxInputTokens)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Tokens Out: %d total", *op.TotalOutputTokens)
	if op.AvgOutputTokens != nil {
		fmt.Fprintf(w, ", avg %.0f", *op.AvgOutputTokens)
	}
	if op.MinOutputTokens != nil && op.MaxOutputTokens != nil {
		fmt.Fprintf(w, ", min %d, max %d", *op.MinOutputTokens, *op.MaxOutputTokens)
	}
	fmt.Fprintln(w)
}
