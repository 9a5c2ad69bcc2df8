package transfer

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"
)

// Report prints what the run intended to do for every collection, then the
// target counts read back during verification.
func Report(w io.Writer, s *Summary) {
	title := "Sync summary"
	if s.DryRun {
		title = "Dry run summary"
	}
	fmt.Fprintf(w, "\n%s (%s -> %s, run %s)\n", title, s.Source, s.Target, s.RunID)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range s.Results {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Name, r.Status, describe(r, s.Source))
	}
	tw.Flush()

	fmt.Fprintf(w, "\nVerified counts in %s\n", s.Target)
	if len(s.Final) == 0 {
		fmt.Fprintln(w, "  (no collection has documents)")
	}
	names := make([]string, 0, len(s.Final))
	for n := range s.Final {
		names = append(names, n)
	}
	sort.Strings(names)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, n := range names {
		fmt.Fprintf(tw, "  %s\t%d\n", n, s.Final[n])
	}
	for n, err := range s.VerifyErrors {
		fmt.Fprintf(tw, "  %s\tunverified: %v\n", n, err)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nDocuments written: %d in %s\n", s.Inserted(), s.Finished.Sub(s.Started).Round(time.Millisecond))
}

func describe(r CollectionResult, source string) string {
	switch r.Status {
	case StatusSkippedAbsent:
		return "not present in " + source
	case StatusSkippedEmpty:
		return "empty in " + source
	case StatusDryRun:
		return fmt.Sprintf("%d documents would replace the target", r.SourceCount)
	case StatusCopied:
		return fmt.Sprintf("%d documents (replaced %d)", r.Inserted, r.Deleted)
	case StatusPartial:
		return fmt.Sprintf("%d of %d documents, %d rejected (replaced %d)", r.Inserted, r.SourceCount, r.Rejected, r.Deleted)
	case StatusFailed:
		return fmt.Sprintf("error: %v", r.Err)
	default:
		return ""
	}
}
