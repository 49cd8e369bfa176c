package server_test

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/gokts/pkg/config"
	"github.com/walteh/gokts/pkg/guidelines"
	"github.com/walteh/gokts/pkg/highlight"
	"github.com/walteh/gokts/pkg/request"
	"github.com/walteh/gokts/pkg/server"
)

type response struct {
	session  string
	client   string
	commands string
}

type recordingResponder struct {
	responses chan response
}

func (me *recordingResponder) Respond(_ context.Context, session, client, commands string) error {
	me.responses <- response{session: session, client: client, commands: commands}
	return nil
}

// keywordHighlighter highlights the first word of the buffer as a keyword.
type keywordHighlighter struct{}

func (keywordHighlighter) Supports(lang string) bool { return lang == "rust" }

func (keywordHighlighter) Highlight(_ context.Context, _ string, source []byte) ([]string, []highlight.Event, error) {
	end := bytes.IndexByte(source, ' ')
	return []string{"keyword.function"}, []highlight.Event{
		highlight.ScopeStart{Index: 0},
		highlight.Source{Start: 0, End: end},
		highlight.ScopeEnd{},
	}, nil
}

func (keywordHighlighter) IndentGuidelines(context.Context, string, []byte) ([]guidelines.IndentGuideline, error) {
	return []guidelines.IndentGuideline{guidelines.NewIndentGuideline(2, 0)}, nil
}

// plainHighlighter leaves the whole first line outside any scope.
type plainHighlighter struct{}

func (plainHighlighter) Supports(string) bool { return true }

func (plainHighlighter) Highlight(_ context.Context, _ string, source []byte) ([]string, []highlight.Event, error) {
	return nil, []highlight.Event{highlight.Source{Start: 0, End: bytes.IndexByte(source, '\n')}}, nil
}

type fixedTree struct{}

func (fixedTree) TextObjects(context.Context, request.TextObjects) (string, error) {
	return "1.1,1.2", nil
}

func (fixedTree) Nav(context.Context, request.Nav) (string, error) {
	return "2.1,2.4", nil
}

func startServer(t *testing.T, opts ...server.Option) (*server.Server, *config.Config, <-chan error) {
	t.Helper()

	cfg := config.Default()
	cfg.Socket = filepath.Join(t.TempDir(), "kts.sock")
	cfg.IndentGuidelines = config.GuidelinesRanges

	srv := server.New(cfg, opts...)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background())
	}()

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("server stopped before being ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}

	t.Cleanup(srv.Shutdown)

	return srv, cfg, done
}

func waitResponse(t *testing.T, responses <-chan response) response {
	t.Helper()

	select {
	case r := <-responses:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
		return response{}
	}
}

func TestServerHighlight(t *testing.T) {
	responder := &recordingResponder{responses: make(chan response, 4)}
	srv, cfg, _ := startServer(t,
		server.WithHighlighter(keywordHighlighter{}),
		server.WithResponder(responder),
	)
	ctx := context.Background()

	client := "client0"
	require.NoError(t, request.Send(ctx, request.RegisterSession{Name: "kak", Client: &client}, cfg))
	require.Eventually(t, func() bool { return srv.Sessions().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, request.Send(ctx, request.TryEnableHighlight{Lang: "rust", Client: client}, cfg))
	enable := waitResponse(t, responder.responses)
	assert.Equal(t, "kak", enable.session)
	assert.Equal(t, "kak-tree-sitter-highlight-enable", enable.commands)

	req := request.Highlight{Client: client, Buffer: "/tmp/a.rs", Lang: "rust", Timestamp: 7}
	require.NoError(t, request.SendHighlight(ctx, req, []byte("fn main() {\n    x\n}\n"), cfg))

	got := waitResponse(t, responder.responses)
	assert.Equal(t, "kak", got.session)
	assert.Equal(t, client, got.client)
	assert.Equal(t, strings.Join([]string{
		"evaluate-commands -buffer '/tmp/a.rs' %{",
		"set-option buffer kts_highlighter_ranges 7 1.1,1.2|ts_keyword_function",
		"set-option buffer kts_indent_guidelines 7 2.1+1|ts_indent_guideline ",
		"}",
	}, "\n"), got.commands)
}

func TestServerTreeRequests(t *testing.T) {
	responder := &recordingResponder{responses: make(chan response, 4)}
	srv, cfg, _ := startServer(t, server.WithTree(fixedTree{}), server.WithResponder(responder))
	ctx := context.Background()

	client := "client1"
	require.NoError(t, request.Send(ctx, request.RegisterSession{Name: "s", Client: &client}, cfg))
	require.Eventually(t, func() bool { return srv.Sessions().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, request.Send(ctx, request.TextObjects{
		Client: client, Buffer: "/a.go", Lang: "go", Pattern: "function.inside",
		Selections: "1.1,1.1", Mode: request.ModeObject,
	}, cfg))
	assert.Equal(t, "select 1.1,1.2", waitResponse(t, responder.responses).commands)

	require.NoError(t, request.Send(ctx, request.Nav{
		Client: client, Buffer: "/a.go", Lang: "go", Selections: "1.1,1.1", Dir: request.DirNextSibling,
	}, cfg))
	assert.Equal(t, "select 2.1,2.4", waitResponse(t, responder.responses).commands)
}

func TestServerSessionLifecycleAndShutdown(t *testing.T) {
	reloaded := make(chan struct{}, 1)
	srv, cfg, done := startServer(t, server.WithReloader(func(context.Context) (*config.Config, error) {
		reloaded <- struct{}{}
		return nil, nil
	}))
	ctx := context.Background()

	require.NoError(t, request.Send(ctx, request.WithSession(request.RegisterSession{}, "one"), cfg))
	require.NoError(t, request.Send(ctx, request.WithSession(request.RegisterSession{}, "two"), cfg))
	require.Eventually(t, func() bool { return srv.Sessions().Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, request.Send(ctx, request.WithSession(request.SessionExit{}, "one"), cfg))
	require.Eventually(t, func() bool { return srv.Sessions().Len() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"two"}, srv.Sessions().Names())

	require.NoError(t, request.Send(ctx, request.Reload{}, cfg))
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload not called")
	}

	require.NoError(t, request.Send(ctx, request.Shutdown{}, cfg))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	err := request.Send(ctx, request.Reload{}, cfg)
	assert.ErrorIs(t, err, request.ErrCannotConnectToServer)
}

func TestServerReloadAppliesConfig(t *testing.T) {
	reloadedCfg := config.Default()
	reloadedCfg.FallbackFace = "plain"

	responder := &recordingResponder{responses: make(chan response, 4)}
	cfg := config.Default()
	cfg.Socket = filepath.Join(t.TempDir(), "unused.sock")
	srv := server.New(cfg,
		server.WithHighlighter(plainHighlighter{}),
		server.WithResponder(responder),
		server.WithReloader(func(context.Context) (*config.Config, error) {
			return reloadedCfg, nil
		}),
	)
	ctx := context.Background()

	header := []byte(`{"type":"highlight","client":"client0","buffer":"b","lang":"rust","timestamp":1}`)

	require.NoError(t, srv.Dispatch(ctx, []byte(`{"type":"register_session","name":"kak","client":"client0"}`), nil))

	require.NoError(t, srv.Dispatch(ctx, header, strings.NewReader("ab\n")))
	assert.Contains(t, waitResponse(t, responder.responses).commands, "kts_highlighter_ranges 1 1.1,1.2|ts_unknown\n")

	require.NoError(t, srv.Dispatch(ctx, []byte(`{"type":"reload"}`), nil))

	require.NoError(t, srv.Dispatch(ctx, header, strings.NewReader("ab\n")))
	assert.Contains(t, waitResponse(t, responder.responses).commands, "kts_highlighter_ranges 1 1.1,1.2|ts_plain\n")
}

func TestServerShutdownWithIdleConnection(t *testing.T) {
	srv, cfg, done := startServer(t)
	ctx := context.Background()

	idle, err := net.Dial("unix", cfg.SocketPath())
	require.NoError(t, err)
	defer idle.Close()

	_, err = idle.Write([]byte(`{"type":`))
	require.NoError(t, err)

	// connections are accepted in order, so the idle one is being handled once this registers
	require.NoError(t, request.Send(ctx, request.WithSession(request.RegisterSession{}, "kak"), cfg))
	require.Eventually(t, func() bool { return srv.Sessions().Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	srv.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server blocked on an idle connection")
	}
}

func TestServeOnlyOnce(t *testing.T) {
	srv, _, done := startServer(t)

	err := srv.Serve(context.Background())
	assert.ErrorIs(t, err, server.ErrAlreadyStarted)

	srv.Shutdown()
	require.NoError(t, <-done)

	err = srv.Serve(context.Background())
	assert.ErrorIs(t, err, server.ErrAlreadyStarted)
}

func TestDispatchErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Socket = filepath.Join(t.TempDir(), "unused.sock")
	srv := server.New(cfg)
	ctx := context.Background()

	err := srv.Dispatch(ctx, []byte(`{"type":"teleport"}`), nil)
	assert.ErrorIs(t, err, request.ErrUnknownRequestType)

	err = srv.Dispatch(ctx, []byte(`{"type":"nav","client":"c","buffer":"b","lang":"go","selections":"","dir":"parent"}`), nil)
	assert.Error(t, err)

	err = srv.Dispatch(ctx, []byte(`{"type":"highlight","client":"nobody","buffer":"b","lang":"rust","timestamp":1}`), strings.NewReader("x"))
	assert.Error(t, err)
}

func TestKakQuote(t *testing.T) {
	assert.Equal(t, "'/tmp/it''s.rs'", server.KakQuote("/tmp/it's.rs"))
	assert.Equal(t, "evaluate-commands -no-hooks -client 'client0' %{\necho hi\n}", server.ClientCommands("client0", "echo hi"))
}
