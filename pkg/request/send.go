package request

import (
	"context"
	"net"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrCannotConnectToServer = errors.Base("cannot connect to server")
	ErrCannotSendRequest     = errors.Base("cannot send request")
)

// Message is anything with a wire type: every UnixRequest and Request.
type Message interface {
	Type() string
}

// Resources locates the daemon transport.
type Resources interface {
	SocketPath() string
}

// Send writes a request to the daemon socket in a single write and does not wait for a reply.
// Failures are not retried.
func Send(ctx context.Context, req Message, res Resources) error {
	return send(ctx, req, nil, res)
}

// SendHighlight sends a Highlight request immediately followed by the buffer content on the
// same connection.
func SendHighlight(ctx context.Context, req Highlight, content []byte, res Resources) error {
	return send(ctx, req, content, res)
}

func send(ctx context.Context, req Message, content []byte, res Resources) error {
	serialized, err := Marshal(req)
	if err != nil {
		return errors.WrapWith(errors.Errorf("serializing %T: %w", req, err), ErrCannotSendRequest)
	}

	zerolog.Ctx(ctx).Debug().RawJSON("request", serialized).Str("socket", res.SocketPath()).Msg("sending request")

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", res.SocketPath())
	if err != nil {
		return errors.WrapWith(err, ErrCannotConnectToServer)
	}
	defer conn.Close()

	payload := net.Buffers{serialized}
	if len(content) > 0 {
		payload = append(payload, content)
	}

	if _, err := payload.WriteTo(conn); err != nil {
		return errors.WrapWith(err, ErrCannotSendRequest)
	}

	return nil
}
