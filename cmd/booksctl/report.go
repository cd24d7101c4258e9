package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/heinscr/books-library/application/services"
)

func printReport(w io.Writer, format, name string, r services.Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%s%s\n", name, mode)
	fmt.Fprintf(w, "  scanned:    %d\n", r.Scanned)
	fmt.Fprintf(w, "  candidates: %d\n", r.Candidates)
	fmt.Fprintf(w, "  updated:    %d\n", r.Updated)
	fmt.Fprintf(w, "  not found:  %d\n", r.NotFound)
	fmt.Fprintf(w, "  skipped:    %d\n", r.Skipped)
	fmt.Fprintf(w, "  failed:     %d\n", r.Failed)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "    %s\n", f)
	}
	return nil
}

func reportError(name string, r services.Report) error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("%s: %d of %d candidates failed", name, r.Failed, r.Candidates)
}
