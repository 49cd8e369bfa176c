package highlight

import "fmt"

// Event is one item of the highlight event stream produced by the parser's highlighting pass.
//
// The stream is expected to be sorted by ascending source byte position, with every ScopeStart
// closed by a later ScopeEnd.
type Event interface {
	isEvent()
}

// ScopeStart opens a scope whose face is the entry at Index in the face table.
type ScopeStart struct {
	Index int
}

// ScopeEnd closes the most recently opened scope.
type ScopeEnd struct{}

// Source is a half-open byte range [Start, End) of the source text.
type Source struct {
	Start int
	End   int
}

func (ScopeStart) isEvent() {}
func (ScopeEnd) isEvent()   {}
func (Source) isEvent()     {}

func (me ScopeStart) String() string {
	return fmt.Sprintf("start(%d)", me.Index)
}

func (ScopeEnd) String() string {
	return "end"
}

func (me Source) String() string {
	return fmt.Sprintf("source[%d,%d)", me.Start, me.End)
}
