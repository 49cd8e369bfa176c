package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/gokts/pkg/config"
	"github.com/walteh/gokts/pkg/queries"
	"github.com/walteh/gokts/pkg/server"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	configPath string
	kakBin     string
}

func NewServeCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the daemon",
	}

	cmd.Flags().StringVar(&me.kakBin, "kak", "kak", "kakoune binary used to send commands back to sessions")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.configPath, _ = cmd.Flags().GetString("config")
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := config.Load(fs, me.configPath)
	if err != nil {
		return errors.Errorf("loading configuration: %w", err)
	}

	store := queries.NewStore(fs, cfg.QueriesDir)
	if err := logLanguages(ctx, store); err != nil {
		return err
	}

	srv := server.New(cfg,
		server.WithResponder(server.KakResponder{Bin: me.kakBin}),
		server.WithReloader(func(ctx context.Context) (*config.Config, error) {
			reloaded, err := config.Load(fs, me.configPath)
			if err != nil {
				return nil, errors.Errorf("reloading configuration: %w", err)
			}
			if reloaded.SocketPath() != cfg.SocketPath() {
				zerolog.Ctx(ctx).Warn().Str("socket", reloaded.SocketPath()).Msg("socket changes apply after a restart")
			}
			if err := logLanguages(ctx, queries.NewStore(fs, reloaded.QueriesDir)); err != nil {
				return nil, err
			}
			return reloaded, nil
		}),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		select {
		case <-srv.Ready():
			zerolog.Ctx(ctx).Info().Str("socket", cfg.SocketPath()).Msg("daemon ready")
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return errors.Errorf("running daemon: %w", err)
	}

	return nil
}

func logLanguages(ctx context.Context, store *queries.Store) error {
	langs, err := store.Languages(ctx)
	if err != nil {
		return errors.Errorf("listing query directories: %w", err)
	}
	zerolog.Ctx(ctx).Info().Strs("languages", langs).Msg("queries available")
	return nil
}
