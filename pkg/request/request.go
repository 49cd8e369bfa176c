// Package request holds the messages editor sessions send to the daemon.
//
// Two families exist. UnixRequest messages are not tied to a buffer and drive the daemon
// itself (session registration, reload, shutdown). Request messages are issued by a client of
// a session for a given buffer.
package request

import (
	"gitlab.com/tozd/go/errors"
)

// Wire discriminators.
const (
	TypeRegisterSession    = "register_session"
	TypeSessionExit        = "session_exit"
	TypeReload             = "reload"
	TypeShutdown           = "shutdown"
	TypeTryEnableHighlight = "try_enable_highlight"
	TypeHighlight          = "highlight"
	TypeTextObjects        = "text_objects"
	TypeNav                = "nav"
)

// UnixRequest is a request that is not linked to a buffer.
type UnixRequest interface {
	Type() string
	isUnixRequest()
}

// RegisterSession informs the daemon that a session exists and wants the editor commands
// enabling the daemon features.
type RegisterSession struct {
	Name   string  `json:"name"`
	Client *string `json:"client"`
}

// SessionExit informs the daemon that a session has exited.
type SessionExit struct {
	Name string `json:"name"`
}

// Reload asks the daemon to reload its configuration, grammars and queries.
type Reload struct{}

// Shutdown asks the daemon to stop.
type Shutdown struct{}

func (RegisterSession) Type() string { return TypeRegisterSession }
func (SessionExit) Type() string     { return TypeSessionExit }
func (Reload) Type() string          { return TypeReload }
func (Shutdown) Type() string        { return TypeShutdown }

func (RegisterSession) isUnixRequest() {}
func (SessionExit) isUnixRequest()     {}
func (Reload) isUnixRequest()          {}
func (Shutdown) isUnixRequest()        {}

// WithSession sets the session name of the requests that carry one, replacing any previous
// name. Other requests are returned unchanged.
func WithSession(req UnixRequest, name string) UnixRequest {
	switch r := req.(type) {
	case RegisterSession:
		return RegisterSession{Name: name, Client: r.Client}
	case SessionExit:
		return SessionExit{Name: name}
	default:
		return req
	}
}

// Request is a buffer-scoped request issued by a client.
type Request interface {
	Type() string
	ClientName() string
	isRequest()
}

// TryEnableHighlight starts a highlighting session for a filetype. The daemon does not reply
// with the outcome; it only sends the highlighting commands back when the filetype is
// supported.
type TryEnableHighlight struct {
	Lang   string `json:"lang"`
	Client string `json:"client"`
}

// Highlight asks to highlight a buffer. The buffer content follows the request on the same
// connection.
type Highlight struct {
	Client    string `json:"client"`
	Buffer    string `json:"buffer"`
	Lang      string `json:"lang"`
	Timestamp uint64 `json:"timestamp"`
}

// TextObjects applies a text-object pattern on selections.
type TextObjects struct {
	Client     string        `json:"client"`
	Buffer     string        `json:"buffer"`
	Lang       string        `json:"lang"`
	Pattern    string        `json:"pattern"`
	Selections string        `json:"selections"`
	Mode       OperationMode `json:"mode"`
}

// Nav moves selections through the syntax tree.
type Nav struct {
	Client     string `json:"client"`
	Buffer     string `json:"buffer"`
	Lang       string `json:"lang"`
	Selections string `json:"selections"`
	Dir        Dir    `json:"dir"`
}

func (TryEnableHighlight) Type() string { return TypeTryEnableHighlight }
func (Highlight) Type() string          { return TypeHighlight }
func (TextObjects) Type() string        { return TypeTextObjects }
func (Nav) Type() string                { return TypeNav }

func (me TryEnableHighlight) ClientName() string { return me.Client }
func (me Highlight) ClientName() string          { return me.Client }
func (me TextObjects) ClientName() string        { return me.Client }
func (me Nav) ClientName() string                { return me.Client }

func (TryEnableHighlight) isRequest() {}
func (Highlight) isRequest()          {}
func (TextObjects) isRequest()        {}
func (Nav) isRequest()                {}

// OperationMode tells how a text-object pattern applies to the selections.
type OperationMode string

const (
	ModeSearchNext       OperationMode = "search_next"
	ModeSearchPrev       OperationMode = "search_prev"
	ModeSearchExtendNext OperationMode = "search_extend_next"
	ModeSearchExtendPrev OperationMode = "search_extend_prev"
	ModeFindNext         OperationMode = "find_next"
	ModeFindPrev         OperationMode = "find_prev"
	ModeExtendNext       OperationMode = "extend_next"
	ModeExtendPrev       OperationMode = "extend_prev"
	ModeObject           OperationMode = "object"
)

var operationModes = map[OperationMode]struct{}{
	ModeSearchNext: {}, ModeSearchPrev: {}, ModeSearchExtendNext: {}, ModeSearchExtendPrev: {},
	ModeFindNext: {}, ModeFindPrev: {}, ModeExtendNext: {}, ModeExtendPrev: {}, ModeObject: {},
}

func (me *OperationMode) UnmarshalText(text []byte) error {
	mode := OperationMode(text)
	if _, ok := operationModes[mode]; !ok {
		return errors.Errorf("unknown operation mode %q", text)
	}
	*me = mode
	return nil
}

// Dir is a direction in the syntax tree.
type Dir string

const (
	DirParent       Dir = "parent"
	DirFirstChild   Dir = "first_child"
	DirLastChild    Dir = "last_child"
	DirFirstSibling Dir = "first_sibling"
	DirLastSibling  Dir = "last_sibling"
	DirPrevSibling  Dir = "prev_sibling"
	DirNextSibling  Dir = "next_sibling"
)

var dirs = map[Dir]struct{}{
	DirParent: {}, DirFirstChild: {}, DirLastChild: {}, DirFirstSibling: {},
	DirLastSibling: {}, DirPrevSibling: {}, DirNextSibling: {},
}

func (me *Dir) UnmarshalText(text []byte) error {
	dir := Dir(text)
	if _, ok := dirs[dir]; !ok {
		return errors.Errorf("unknown navigation direction %q", text)
	}
	*me = dir
	return nil
}
