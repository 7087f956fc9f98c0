package app

import (
	"fmt"
	"os"
)

// compileHints suggests how to fill the gaps a compile reported.
func compileHints(result CompileResult) []string {
	var hints []string
	for _, id := range result.Missing {
		hints = append(hints, fmt.Sprintf(
			"hint: %s is not installed or failed to load; install its module and recompile",
			id,
		))
	}
	for _, path := range result.Derived.MissingSelections {
		hints = append(hints, fmt.Sprintf(
			"hint: %s needs a choice; pass --select %s=<value>",
			path, path,
		))
	}
	return hints
}

// EmitHints writes hint messages to stderr.
func EmitHints(hints []string) {
	for _, h := range hints {
		fmt.Fprintln(os.Stderr, h)
	}
}
