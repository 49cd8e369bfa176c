package position

import (
	"fmt"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Place is a 1-based line/column position as understood by the editor.
type Place struct {
	Line int
	Col  int
}

func (p Place) String() string {
	return fmt.Sprintf("%d.%d", p.Line, p.Col)
}

// ColumnCounter returns how many columns a single character occupies.
type ColumnCounter func(r rune) int

// CountChars counts every character as one column, whatever its byte length or rendered width.
func CountChars(rune) int {
	return 1
}

// CountDisplayWidth counts the terminal display width of a character. Zero-width and control
// characters still occupy one column so that positions stay addressable.
func CountDisplayWidth(r rune) int {
	if w := uniseg.StringWidth(string(r)); w > 0 {
		return w
	}
	return 1
}

type MapperOption func(*Mapper)

func WithColumnCounter(counter ColumnCounter) MapperOption {
	return func(m *Mapper) {
		if counter != nil {
			m.width = counter
		}
	}
}

// Mapper converts byte offsets into line/column places in a single forward pass.
//
// The cursor starts on the first character of the source (line 1, column 1). Targets passed
// to Advance must be non-decreasing over the lifetime of a Mapper: it never rewinds.
type Mapper struct {
	source string
	next   int

	byteIdx    int
	line       int
	col        int
	changeLine bool
	lastWidth  int

	width ColumnCounter
}

func NewMapper(source string, opts ...MapperOption) *Mapper {
	me := &Mapper{
		source: source,
		line:   1,
		col:    1,
		width:  CountChars,
	}

	for _, opt := range opts {
		opt(me)
	}

	if len(source) > 0 {
		r, size := utf8.DecodeRuneInString(source)
		me.next = size
		me.changeLine = r == '\n'
		me.lastWidth = me.width(r)
	}

	return me
}

// Advance moves the cursor onto the character containing the byte at target, or onto the last
// character when the source is exhausted first. A character following a line feed starts a new
// line.
func (me *Mapper) Advance(target int) {
	for me.next <= target && me.next < len(me.source) {
		r, size := utf8.DecodeRuneInString(me.source[me.next:])
		me.byteIdx = me.next
		me.next += size

		if me.changeLine {
			me.line++
			me.col = 1
		} else {
			me.col += me.lastWidth
		}

		me.changeLine = r == '\n'
		me.lastWidth = me.width(r)
	}
}

func (me *Mapper) Line() int {
	return me.line
}

func (me *Mapper) Col() int {
	return me.col
}

// ByteIndex is the byte offset of the character the cursor is on.
func (me *Mapper) ByteIndex() int {
	return me.byteIdx
}

func (me *Mapper) Place() Place {
	return Place{Line: me.line, Col: me.col}
}
