package main

import (
	"fmt"
	"io"

	"github.com/aledsdavies/trieste/checker"
	"github.com/aledsdavies/trieste/fuzzer"
)

// printFindings renders one checker.Finding per line, prefixed with the
// pass it belongs to.
func printFindings(w io.Writer, passName string, findings []checker.Finding, useColor bool) {
	for _, f := range findings {
		fmt.Fprintf(w, "%s%s\n", Colorize(passName+": ", ColorYellow, useColor), f.Message)
	}
}

// printSequenceReport renders a one-line summary of a fuzzer.SequenceReport
// plus a line per distinct failure, grouped by the pass that failed.
func printSequenceReport(w io.Writer, r fuzzer.SequenceReport, useColor bool) {
	fmt.Fprintf(w, "%d passed, %d failed (of %d)\n", r.Passed, r.Failed, len(r.Runs))

	for passName, byMessage := range r.ErrorsByPass {
		for message, count := range byMessage {
			label := message
			if label == "" {
				label = "well-formedness violation"
			}
			fmt.Fprintf(w, "%s%s (%d)\n", Colorize("  "+passName+": ", ColorRed, useColor), label, count)
		}
	}
}
