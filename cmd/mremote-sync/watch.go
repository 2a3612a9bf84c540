package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var autoImport bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check linked sources until interrupted",
		Long: `Check every linked source on its interval and report new content.

With --auto-import (or watch.auto_import in the config) changed exports are
imported with the merge options given at link time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("auto-import") {
				autoImport = a.cfg.Watch.AutoImport
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var repo treeRepo
			if autoImport {
				r, err := a.openSnapshot()
				if err != nil {
					return err
				}
				repo = r
			}

			var w *watch.Watcher
			handler := a.changeHandler(ctx, store, repo, func() *watch.Watcher { return w })
			w = watch.New(store, a.fileSystem(), watch.WithLogger(a.log), watch.WithHandler(handler))
			if err := w.Start(ctx); err != nil {
				return err
			}
			a.log.Info().Int("sources", len(w.Scheduled())).Bool("auto_import", autoImport).Msg("watching linked sources")

			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoImport, "auto-import", false, "Import changed sources automatically")
	return cmd
}

// changeHandler logs change events and, when repo is set, imports the new
// content and acknowledges the hash.
func (a *app) changeHandler(ctx context.Context, store watch.Repository, repo treeRepo, watcher func() *watch.Watcher) watch.Handler {
	var mu sync.Mutex
	return func(ev watch.ChangeEvent) {
		log := a.log.With().Str("source", ev.SourceID).Str("hash", ev.NewHash).Logger()
		if repo == nil {
			log.Info().Str("path", ev.Path).Msg("linked source changed")
			return
		}

		src, err := store.Get(ctx, ev.SourceID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load linked source")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		w := watcher()
		data, err := w.Content(ctx, ev)
		if err != nil {
			log.Error().Err(err).Str("path", ev.Path).Msg("failed to read changed source")
			return
		}
		out, err := a.importData(ctx, repo, data, filepath.Base(ev.Path), src.MergeOptions, false)
		if err != nil {
			log.Error().Err(err).Msg("auto-import failed")
			return
		}
		if err := w.Acknowledge(ctx, ev.SourceID, ev.NewHash); err != nil {
			log.Error().Err(err).Msg("failed to acknowledge import")
			return
		}
		log.Info().Msg(out.Summary.Message())
	}
}
