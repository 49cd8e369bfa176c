package server

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/gokts/pkg/guidelines"
	"github.com/walteh/gokts/pkg/highlight"
	"github.com/walteh/gokts/pkg/request"
	"gitlab.com/tozd/go/errors"
)

// Highlighter runs the parser and the highlight query of a language over a buffer.
type Highlighter interface {
	Supports(lang string) bool
	Highlight(ctx context.Context, lang string, source []byte) (faces []string, events []highlight.Event, err error)
}

// GuidelineSource is implemented by highlighters that also compute indent guidelines.
type GuidelineSource interface {
	IndentGuidelines(ctx context.Context, lang string, source []byte) ([]guidelines.IndentGuideline, error)
}

// Tree answers the requests that need the syntax tree of a buffer. Both methods return the
// new selections in the editor's selection description format.
type Tree interface {
	TextObjects(ctx context.Context, req request.TextObjects) (string, error)
	Nav(ctx context.Context, req request.Nav) (string, error)
}

// Responder delivers editor commands to a client of a session.
type Responder interface {
	Respond(ctx context.Context, session, client, commands string) error
}

// NoHighlighter supports no language.
type NoHighlighter struct{}

func (NoHighlighter) Supports(string) bool { return false }

func (NoHighlighter) Highlight(_ context.Context, lang string, _ []byte) ([]string, []highlight.Event, error) {
	return nil, nil, errors.Errorf("no grammar for %q", lang)
}

// KakResponder pipes commands to `kak -p <session>`.
type KakResponder struct {
	Bin string
}

func (me KakResponder) Respond(ctx context.Context, session, client, commands string) error {
	bin := me.Bin
	if bin == "" {
		bin = "kak"
	}

	cmd := exec.CommandContext(ctx, bin, "-p", session)
	cmd.Stdin = strings.NewReader(ClientCommands(client, commands))

	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Errorf("sending commands to session %q: %w: %s", session, err, out)
	}

	zerolog.Ctx(ctx).Debug().Str("session", session).Str("client", client).Msg("sent commands")

	return nil
}

// ClientCommands wraps commands so that they run in the context of client.
func ClientCommands(client, commands string) string {
	return "evaluate-commands -no-hooks -client " + KakQuote(client) + " %{\n" + commands + "\n}"
}

// KakQuote single-quotes s for the editor command language.
func KakQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
