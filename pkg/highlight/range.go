package highlight

import (
	"fmt"
	"strings"
)

// KakHighlightRange is a single span for the Kakoune `ranges` highlighter.
// Lines and columns are 1-based and inclusive.
type KakHighlightRange struct {
	LineStart int
	ColStart  int
	LineEnd   int
	ColEnd    int
	Face      string
}

func NewKakHighlightRange(lineStart, colStart, lineEnd, colEnd int, face string) KakHighlightRange {
	return KakHighlightRange{
		LineStart: lineStart,
		ColStart:  colStart,
		LineEnd:   lineEnd,
		ColEnd:    colEnd,
		Face:      face,
	}
}

// String renders the range as `<line_start>.<col_start>,<line_end>.<col_end>|ts_<face>`.
func (me KakHighlightRange) String() string {
	return fmt.Sprintf("%d.%d,%d.%d|ts_%s", me.LineStart, me.ColStart, me.LineEnd, me.ColEnd, me.Face)
}

type Ranges []KakHighlightRange

// String joins every range token with a single space.
func (me Ranges) String() string {
	var b strings.Builder
	for i, r := range me {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.String())
	}
	return b.String()
}

// KakCommand renders the option update the editor applies for the given buffer timestamp.
func (me Ranges) KakCommand(timestamp uint64) string {
	if len(me) == 0 {
		return fmt.Sprintf("set-option buffer kts_highlighter_ranges %d", timestamp)
	}
	return fmt.Sprintf("set-option buffer kts_highlighter_ranges %d %s", timestamp, me.String())
}
