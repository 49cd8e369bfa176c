// Package guidelines renders indent guidelines as Kakoune highlighter ranges.
//
// Guidelines are stored sparsely: a line only appears when its guide columns differ from the
// line above, and the columns are carried forward over the gap when rendering. All the marks
// for a buffer end up in a single string instead of one highlighter item per mark.
package guidelines

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	GuidelineChar = '│'
	GuidelineFace = "ts_indent_guideline"
)

var ErrUnorderedGuidelines = errors.Base("indent guidelines must be strictly increasing by line")

// Mode selects the symbol emitted for each guide mark.
type Mode int

const (
	// ModeReplaceRanges emits the guideline glyph, for the `replace-ranges` highlighter.
	ModeReplaceRanges Mode = iota
	// ModeRanges emits the guideline face, for the `ranges` highlighter.
	ModeRanges
)

func (m Mode) symbol() string {
	if m == ModeRanges {
		return GuidelineFace
	}
	return string(GuidelineChar)
}

func (m Mode) String() string {
	switch m {
	case ModeReplaceRanges:
		return "replace-ranges"
	case ModeRanges:
		return "ranges"
	default:
		return "unknown"
	}
}

// IndentGuideline lists the 0-based guide columns of a 1-based line.
type IndentGuideline struct {
	Line int
	Cols []int
}

func NewIndentGuideline(line int, cols ...int) IndentGuideline {
	return IndentGuideline{Line: line, Cols: cols}
}

type IndentGuidelines struct {
	lines []IndentGuideline
}

func New(lines ...IndentGuideline) (*IndentGuidelines, error) {
	for i := 1; i < len(lines); i++ {
		if lines[i].Line <= lines[i-1].Line {
			return nil, errors.WrapWith(errors.Errorf("line %d follows line %d", lines[i].Line, lines[i-1].Line), ErrUnorderedGuidelines)
		}
	}

	return &IndentGuidelines{lines: lines}, nil
}

func (me *IndentGuidelines) Lines() []IndentGuideline {
	return me.lines
}

// String renders every guide mark as `<line>.<col+1>+1|<symbol> `.
func (me *IndentGuidelines) String(mode Mode) string {
	var b strings.Builder
	me.write(&b, mode.symbol())
	return b.String()
}

func (me *IndentGuidelines) write(b *strings.Builder, symbol string) {
	if len(me.lines) == 0 {
		return
	}

	for i := 0; i+1 < len(me.lines); i++ {
		cur, next := me.lines[i], me.lines[i+1]
		for line := cur.Line; line < next.Line; line++ {
			writeLine(b, line, cur.Cols, symbol)
		}
	}

	last := me.lines[len(me.lines)-1]
	writeLine(b, last.Line, last.Cols, symbol)
}

func writeLine(b *strings.Builder, line int, cols []int, symbol string) {
	for _, col := range cols {
		fmt.Fprintf(b, "%d.%d+1|%s ", line, col+1, symbol)
	}
}
