package routing

import (
	"strings"
)

// Longest first so "ROUTE_TECH:" goes before "ROUTE_TECH".
var controlMarkers = []string{
	MarkerNeedEmail,
	MarkerRouteBilling + ":",
	MarkerRouteTech + ":",
	MarkerRouteBilling,
	MarkerRouteTech,
}

// Lines emitted by agent executors and our own tracing.
var traceLinePrefixes = []string{
	"> Entering new",
	"> Finished chain",
	"Invoking:",
	"Action Input:",
	"Observation:",
	"Triage Agent:",
	"Triage Agent Output:",
	"Orchestrator:",
	"[trace]",
	"[debug]",
}

// "Thought:" and "Action:" also open ordinary sentences, so they only count
// as trace lines when the text carries an executor step (an "Action Input:"
// or "Observation:" line).
var executorStepPrefixes = []string{
	"Thought:",
	"Action:",
}

// Clean strips internal control markers and trace lines from user-facing
// text. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	for {
		next := cleanOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanOnce(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	executorTrace := hasExecutorTrace(lines)

	for _, line := range lines {
		for _, marker := range controlMarkers {
			line = strings.ReplaceAll(line, marker, "")
		}
		line = strings.TrimRight(line, " \t")
		if isTraceLine(line, traceLinePrefixes) ||
			(executorTrace && isTraceLine(line, executorStepPrefixes)) {
			continue
		}

		if strings.TrimSpace(line) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func hasExecutorTrace(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Action Input:") || strings.HasPrefix(trimmed, "Observation:") {
			return true
		}
	}
	return false
}

func isTraceLine(line string, prefixes []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
