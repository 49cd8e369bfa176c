package send

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/gokts/pkg/config"
	"github.com/walteh/gokts/pkg/request"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	configPath string
	session    string
	payload    string
	content    string
}

func NewRequestCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "request",
		Short: "send a request to the daemon",
	}

	cmd.Flags().StringVar(&me.session, "session", "", "session the request originates from")
	cmd.Flags().StringVar(&me.payload, "request", "", "JSON encoded request")
	cmd.Flags().StringVar(&me.content, "content", "", "file holding the buffer content of a highlight request, - for stdin")
	_ = cmd.MarkFlagRequired("request")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.configPath, _ = cmd.Flags().GetString("config")
		return me.Run(cmd.Context(), cmd.InOrStdin())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, stdin io.Reader) error {
	fs := afero.NewOsFs()

	cfg, err := config.Load(fs, me.configPath)
	if err != nil {
		return errors.Errorf("loading configuration: %w", err)
	}

	unix, err := request.UnmarshalUnixRequest([]byte(me.payload))
	if err == nil {
		if me.session != "" {
			unix = request.WithSession(unix, me.session)
		}
		return request.Send(ctx, unix, cfg)
	}
	if !errors.Is(err, request.ErrUnknownRequestType) {
		return errors.Errorf("decoding request: %w", err)
	}

	req, err := request.UnmarshalRequest([]byte(me.payload))
	if err != nil {
		return errors.Errorf("decoding request: %w", err)
	}

	hl, ok := req.(request.Highlight)
	if !ok {
		return request.Send(ctx, req, cfg)
	}

	content, err := me.readContent(fs, stdin)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("buffer", hl.Buffer).Int("bytes", len(content)).Msg("sending buffer content")

	return request.SendHighlight(ctx, hl, content, cfg)
}

func (me *Handler) readContent(fs afero.Fs, stdin io.Reader) ([]byte, error) {
	switch me.content {
	case "":
		return nil, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Errorf("reading buffer content from stdin: %w", err)
		}
		return data, nil
	default:
		data, err := afero.ReadFile(fs, me.content)
		if err != nil {
			return nil, errors.Errorf("reading buffer content: %w", err)
		}
		return data, nil
	}
}
