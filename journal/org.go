package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatRun renders a run as an Org-mode block. Structured facts live in the
// PROPERTIES drawer so the block stays searchable.
func FormatRun(r RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Run: %s %s (%s)\n", r.ProductCode, strings.ToUpper(r.Status), shortID(r.RunID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":RUN_ID: %s\n", r.RunID)
	fmt.Fprintf(&b, ":PRODUCT_CODE: %s\n", r.ProductCode)
	fmt.Fprintf(&b, ":STARTED_AT: %s\n", orgTime(r.StartedAt))
	fmt.Fprintf(&b, ":FINISHED_AT: %s\n", orgTime(r.FinishedAt))
	fmt.Fprintf(&b, ":DURATION: %s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, ":STATUS: %s\n", r.Status)
	if r.Reason != "" {
		fmt.Fprintf(&b, ":REASON: %s\n", r.Reason)
	}
	fmt.Fprintf(&b, ":PAGES: %d\n", r.Pages)
	fmt.Fprintf(&b, ":REQUESTS: %d\n", r.Requests)
	fmt.Fprintf(&b, ":EXECUTIONS: %d\n", r.Executions)
	fmt.Fprintf(&b, ":CANDLES: %d\n", r.Candles)
	if r.Executions > 0 {
		fmt.Fprintf(&b, ":ID_RANGE: %d..%d\n", r.OldestID, r.NewestID)
	}
	b.WriteString(":END:\n")

	if r.Output != "" {
		b.WriteString("\n*** Output\n")
		for _, p := range strings.Split(r.Output, ",") {
			fmt.Fprintf(&b, "- [[file:%s]]\n", p)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "\n*** Error\n%s\n", r.Error)
	}
	return b.String()
}

// FormatRuns renders runs separated by blank lines.
func FormatRuns(runs []RunRecord) string {
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatRun(r))
	}
	return b.String()
}

// FormatRunLine is the one-line summary used by journal list.
func FormatRunLine(r RunRecord) string {
	status := r.Status
	if r.Reason != "" {
		status += "/" + r.Reason
	}
	return fmt.Sprintf("%s  %s  %-8s  %-22s  pages=%d execs=%d candles=%d",
		r.RunID, r.StartedAt.UTC().Format("2006-01-02 15:04:05"), r.ProductCode, status,
		r.Pages, r.Executions, r.Candles)
}

func orgTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
