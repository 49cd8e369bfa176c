package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/walteh/gokts/cmd/kts/send"
	"github.com/walteh/gokts/cmd/kts/serve"
	"github.com/walteh/gokts/pkg/config"
	kdebug "github.com/walteh/gokts/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "kts",
		Short:         "tree-sitter highlighting and text-objects for kakoune",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "path to the configuration file (yaml or hcl)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		ctx := kdebug.WithLogger(cmd.Context(), os.Stderr, kdebug.LoggerOptions{
			Debug:     verbose,
			Color:     isatty.IsTerminal(os.Stderr.Fd()),
			Component: cmd.Name(),
		})
		cmd.SetContext(ctx)
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(serve.NewServeCommand())
	rootCmd.AddCommand(send.NewRequestCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
