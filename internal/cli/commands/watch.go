package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/democracycraft/bridge/internal/cli/config"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
	"github.com/democracycraft/bridge/internal/logging"
	"github.com/democracycraft/bridge/internal/utils"
	"github.com/democracycraft/bridge/internal/watch"
)

// newWatchCommand creates the watch command
func newWatchCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [packages]",
		Short: "Regenerate whenever Go sources change",
		Long: `Generate once, then watch every source directory of the module and
regenerate when a Go file is written, created, renamed or removed. Generated
registries and test files do not trigger a run.

Rejected runs are reported and watching continues.`,
		Example: `  bridgegen watch
  bridgegen watch --debounce 500ms ./vote/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return g.watch(cmd, cfg, args)
		},
	}

	addBuildFlags(cmd.Flags())
	cmd.Flags().Duration("debounce", 0, "Quiet period before regenerating (default 200ms)")
	return cmd
}

func (g *globalOptions) watch(cmd *cobra.Command, cfg *config.Config, args []string) error {
	log := logging.Logger().Named("watch")

	var mu sync.Mutex
	regenerate := func() error {
		mu.Lock()
		defer mu.Unlock()
		_, err := g.run(cmd, cfg, args, false)
		if errors.Is(err, pipeline.ErrRejected) {
			return nil
		}
		return err
	}
	if err := regenerate(); err != nil {
		return err
	}

	base, err := filepath.Abs(root(cfg, args))
	if err != nil {
		return err
	}
	dirs, err := utils.FindSourceDirs(base)
	if err != nil {
		return fmt.Errorf("failed to find source directories: %w", err)
	}

	ignore := func(path string) bool {
		return filepath.Base(path) == cfg.Output.File
	}
	fw, err := watch.NewFileWatcher(dirs, cfg.Watch.Debounce, ignore, func(files []string) error {
		log.Info("sources changed", zap.Strings("files", files))
		return regenerate()
	})
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return err
	}

	if !g.json {
		color.New(color.FgCyan, color.Bold).Fprintf(cmd.ErrOrStderr(), "Watching %d directories under %s\n", len(dirs), base)
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")
	}

	<-cmd.Context().Done()
	if err := fw.Stop(); err != nil {
		return fmt.Errorf("error stopping watcher: %w", err)
	}
	if err := context.Cause(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
