// Package main is the entry point for the Mindnoscape application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"mindnoscape/editor/internal/cli"
	"mindnoscape/editor/internal/config"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/logview"
	"mindnoscape/editor/internal/server"
	"mindnoscape/editor/internal/ui"
)

type rootOptions struct {
	configPath string
	noColor    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	var script string

	root := &cobra.Command{
		Use:           "mindnoscape",
		Short:         "Mind map editor with AI-assisted node expansion",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts, script)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "configuration file")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.Flags().StringVar(&script, "script", "", "run commands from a file and exit")

	repl := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive editor (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts, "")
		},
	}

	root.AddCommand(repl, newServeCommand(opts), newExportCommand(opts), newLogsCommand(opts))
	return root
}

func useColor(opts *rootOptions) bool {
	return !opts.noColor && term.IsTerminal(int(os.Stdout.Fd()))
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runREPL(parent context.Context, opts *rootOptions, script string) error {
	ctx, stop := signalContext(parent)
	defer stop()

	a, err := bootstrap(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	u := ui.NewUI(os.Stdout, useColor(opts))
	c, err := cli.NewCLI(a.sessions, u, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize CLI: %w", err)
	}
	defer c.Close()

	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		return c.ExecuteScript(ctx, f)
	}

	historyFile := filepath.Join(a.cfg.Database.Dir, "history")
	if err := c.Run(ctx, historyFile); err != nil {
		a.logger.Error(ctx, "CLI error", log.Fields{"error": err})
		return err
	}
	fmt.Println("Goodbye!")
	return nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := bootstrap(ctx, opts.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Address
			}
			srv, err := server.NewServer(server.Options{
				Address:      addr,
				Sessions:     a.sessions,
				Generator:    a.generator,
				DefaultCount: a.cfg.Generator.Count,
				Metrics:      a.metrics,
			}, a.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			fmt.Printf("Serving on %s\n", addr)
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <mindmap> <file>",
		Short: "Export a stored mindmap by id or name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := bootstrap(ctx, opts.configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.mindmaps.MindmapFind(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.mindmaps.MindmapExport(ctx, m.ID, args[1], format); err != nil {
				return err
			}
			fmt.Printf("Exported %q to %s\n", m.Name, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or xml (default from file extension)")
	return cmd
}

func newLogsCommand(opts *rootOptions) *cobra.Command {
	var (
		dir    string
		filter string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the application logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				dir = cfg.Logs.Folder
			}
			v, err := logview.NewViewer(os.Stdout, logview.Options{
				Dir:      dir,
				Filter:   filter,
				UseColor: useColor(opts),
			})
			if err != nil {
				return err
			}
			if !follow {
				_, err := v.Scan()
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return v.Follow(ctx)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "log directory (default from config)")
	cmd.Flags().StringVar(&filter, "filter", "", "only show entries containing this text")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new entries")
	return cmd
}
