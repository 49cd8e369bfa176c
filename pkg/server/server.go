package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/walteh/gokts/pkg/config"
	"github.com/walteh/gokts/pkg/guidelines"
	"github.com/walteh/gokts/pkg/highlight"
	"github.com/walteh/gokts/pkg/request"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// Server is the daemon side of the request protocol. Each connection carries exactly one
// request; a highlight request is followed by the buffer content until the end of the
// connection.
type Server struct {
	id            string
	socketPath    string
	highlighter   Highlighter
	tree          Tree
	responder     Responder
	translator    *highlight.Translator
	guidelineMode guidelines.Mode
	reload        func(ctx context.Context) (*config.Config, error)

	sessions *Sessions

	ready    chan struct{}
	started  bool
	shutdown context.CancelFunc
	mu       sync.Mutex
	wg       sync.WaitGroup
}

var ErrAlreadyStarted = errors.Base("server already started")

type Option func(*Server)

func WithHighlighter(h Highlighter) Option {
	return func(s *Server) { s.highlighter = h }
}

func WithTree(t Tree) Option {
	return func(s *Server) { s.tree = t }
}

func WithResponder(r Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithReloader sets how a reload request obtains fresh configuration. A nil config keeps the
// current one.
func WithReloader(fn func(ctx context.Context) (*config.Config, error)) Option {
	return func(s *Server) { s.reload = fn }
}

func New(cfg *config.Config, opts ...Option) *Server {
	me := &Server{
		id:          xid.New().String(),
		socketPath:  cfg.SocketPath(),
		highlighter: NoHighlighter{},
		responder:   KakResponder{},
		sessions:    NewSessions(),
		ready:       make(chan struct{}),
	}

	me.Configure(cfg)

	for _, opt := range opts {
		opt(me)
	}

	return me
}

// Configure applies the highlighting settings of cfg to every following request. The socket
// path is fixed once the server is created.
func (me *Server) Configure(cfg *config.Config) {
	translator := highlight.NewTranslator(
		highlight.WithFallbackFace(cfg.FallbackFace),
		highlight.WithColumnCounter(cfg.ColumnCounter()),
	)

	me.mu.Lock()
	defer me.mu.Unlock()

	me.translator = translator
	me.guidelineMode = cfg.GuidelineMode()
}

func (me *Server) settings() (*highlight.Translator, guidelines.Mode) {
	me.mu.Lock()
	defer me.mu.Unlock()

	return me.translator, me.guidelineMode
}

func (me *Server) Sessions() *Sessions {
	return me.sessions
}

// Ready is closed once the socket accepts connections.
func (me *Server) Ready() <-chan struct{} {
	return me.ready
}

// Serve listens on the socket until ctx is done or a shutdown request is received. A Server
// serves at most once.
func (me *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	me.mu.Lock()
	if me.started {
		me.mu.Unlock()
		return errors.WithStack(ErrAlreadyStarted)
	}
	me.started = true
	me.shutdown = cancel
	me.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("server", me.id).Logger()
	ctx = logger.WithContext(ctx)

	if err := os.MkdirAll(filepath.Dir(me.socketPath), 0o700); err != nil {
		return errors.Errorf("creating runtime directory: %w", err)
	}

	if err := removeStale(me.socketPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", me.socketPath)
	if err != nil {
		return errors.Errorf("listening on %s: %w", me.socketPath, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info().Str("socket", me.socketPath).Msg("listening")
	close(me.ready)

	var serveErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				serveErr = errors.Errorf("accepting connection: %w", err)
				cancel()
			}
			break
		}

		me.wg.Add(1)
		go func() {
			defer me.wg.Done()
			defer conn.Close()

			// unblocks a client that never finishes its request
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer stop()

			me.handle(ctx, conn)
		}()
	}

	me.wg.Wait()
	logger.Info().Msg("stopped")

	return multierr.Append(serveErr, removeStale(me.socketPath))
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Errorf("removing socket %s: %w", path, err)
	}
	return nil
}

// Shutdown stops a running Serve.
func (me *Server) Shutdown() {
	me.mu.Lock()
	defer me.mu.Unlock()

	if me.shutdown != nil {
		me.shutdown()
	}
}

func (me *Server) handle(ctx context.Context, conn net.Conn) {
	logger := zerolog.Ctx(ctx).With().Str("conn", xid.New().String()).Logger()
	ctx = logger.WithContext(ctx)

	decoder := json.NewDecoder(conn)

	var header json.RawMessage
	if err := decoder.Decode(&header); err != nil {
		logger.Error().Err(err).Msg("reading request")
		return
	}

	rest := io.MultiReader(decoder.Buffered(), conn)

	if err := me.Dispatch(ctx, header, rest); err != nil {
		logger.Error().Err(err).RawJSON("request", header).Msg("handling request")
	}
}

// Dispatch decodes a request header and runs it. body holds whatever followed the header on
// the connection.
func (me *Server) Dispatch(ctx context.Context, header []byte, body io.Reader) error {
	unix, err := request.UnmarshalUnixRequest(header)
	if err == nil {
		return me.handleUnix(ctx, unix)
	}
	if !errors.Is(err, request.ErrUnknownRequestType) {
		return err
	}

	req, err := request.UnmarshalRequest(header)
	if err != nil {
		return err
	}

	return me.handleRequest(ctx, req, body)
}

func (me *Server) handleUnix(ctx context.Context, req request.UnixRequest) error {
	logger := zerolog.Ctx(ctx)

	switch r := req.(type) {
	case request.RegisterSession:
		client := ""
		if r.Client != nil {
			client = *r.Client
		}
		me.sessions.Register(r.Name, client)
		logger.Info().Str("session", r.Name).Str("client", client).Msg("session registered")

	case request.SessionExit:
		if !me.sessions.Remove(r.Name) {
			logger.Warn().Str("session", r.Name).Msg("exit of unknown session")
		} else {
			logger.Info().Str("session", r.Name).Msg("session exited")
		}

	case request.Reload:
		if me.reload != nil {
			cfg, err := me.reload(ctx)
			if err != nil {
				return errors.Errorf("reloading: %w", err)
			}
			if cfg != nil {
				me.Configure(cfg)
			}
		}
		logger.Info().Msg("reloaded")

	case request.Shutdown:
		logger.Info().Msg("shutdown requested")
		me.Shutdown()

	default:
		return errors.Errorf("unhandled unix request %T", req)
	}

	return nil
}

func (me *Server) handleRequest(ctx context.Context, req request.Request, body io.Reader) error {
	switch r := req.(type) {
	case request.TryEnableHighlight:
		if !me.highlighter.Supports(r.Lang) {
			zerolog.Ctx(ctx).Debug().Str("lang", r.Lang).Msg("highlighting not supported")
			return nil
		}
		return me.respond(ctx, r.Client, "kak-tree-sitter-highlight-enable")

	case request.Highlight:
		source, err := io.ReadAll(body)
		if err != nil {
			return errors.Errorf("reading buffer %s: %w", r.Buffer, err)
		}
		return me.highlight(ctx, r, source)

	case request.TextObjects:
		if me.tree == nil {
			return errors.Errorf("text-objects are not supported for %q", r.Lang)
		}
		selections, err := me.tree.TextObjects(ctx, r)
		if err != nil {
			return errors.Errorf("text-objects %s: %w", r.Pattern, err)
		}
		return me.respond(ctx, r.Client, "select "+selections)

	case request.Nav:
		if me.tree == nil {
			return errors.Errorf("navigation is not supported for %q", r.Lang)
		}
		selections, err := me.tree.Nav(ctx, r)
		if err != nil {
			return errors.Errorf("navigating %s: %w", r.Dir, err)
		}
		return me.respond(ctx, r.Client, "select "+selections)

	default:
		return errors.Errorf("unhandled request %T", req)
	}
}

func (me *Server) highlight(ctx context.Context, req request.Highlight, source []byte) error {
	faces, events, err := me.highlighter.Highlight(ctx, req.Lang, source)
	if err != nil {
		return errors.Errorf("highlighting %s: %w", req.Buffer, err)
	}

	translator, mode := me.settings()

	ranges, err := translator.Translate(ctx, string(source), faces, events)
	if err != nil {
		return errors.Errorf("translating highlights of %s: %w", req.Buffer, err)
	}

	commands := []string{ranges.KakCommand(req.Timestamp)}

	if gs, ok := me.highlighter.(GuidelineSource); ok {
		lines, err := gs.IndentGuidelines(ctx, req.Lang, source)
		if err != nil {
			return errors.Errorf("indent guidelines of %s: %w", req.Buffer, err)
		}

		g, err := guidelines.New(lines...)
		if err != nil {
			return err
		}

		commands = append(commands, fmt.Sprintf("set-option buffer kts_indent_guidelines %d %s", req.Timestamp, g.String(mode)))
	}

	zerolog.Ctx(ctx).Debug().
		Str("buffer", req.Buffer).
		Uint64("timestamp", req.Timestamp).
		Int("ranges", len(ranges)).
		Msg("highlighted buffer")

	return me.respond(ctx, req.Client, "evaluate-commands -buffer "+KakQuote(req.Buffer)+" %{\n"+strings.Join(commands, "\n")+"\n}")
}

func (me *Server) respond(ctx context.Context, client, commands string) error {
	session, ok := me.sessions.SessionOf(client)
	if !ok {
		return errors.Errorf("client %q is not attached to a registered session", client)
	}

	return me.responder.Respond(ctx, session, client, commands)
}
