// Package diff renders readable differences between expected and actual editor output, for
// test failure messages.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Tokens diffs two whitespace separated token streams, one token per line. It returns an empty
// string when they hold the same tokens.
func Tokens(want, got string) string {
	return lines(strings.Join(strings.Fields(want), "\n"), strings.Join(strings.Fields(got), "\n"))
}

// Values diffs the exported fields of two values.
func Values[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return lines(printer.Sprint(want), printer.Sprint(got))
}

func lines(want, got string) string {
	if want == got {
		return ""
	}
	str := "\n\nto convert ACTUAL into EXPECTED:\n\n"
	str += strings.ReplaceAll(strings.ReplaceAll(diff.Diff(got, want), "\n-", "\n➖"), "\n+", "\n➕")
	return str
}
