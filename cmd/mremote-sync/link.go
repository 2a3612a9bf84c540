package main

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

func newLinkCmd(a *app) *cobra.Command {
	var (
		flags    mergeFlags
		url      string
		pattern  string
		name     string
		interval time.Duration
		open     bool
	)
	cmd := &cobra.Command{
		Use:   "link [FILE]",
		Short: "Watch an export file or download URL for changes",
		Long: `Link an mRemoteNG export so changes to it are detected by "mremote-sync watch".

A local file is watched directly. A URL-based source is opened in the browser
and the newest matching .xml in the downloads directory is watched instead.

Examples:
  mremote-sync link ~/exports/confCons.xml --wrap --interval 1m
  mremote-sync link --url https://intranet/export --pattern 'confCons*.xml' --open`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && url == "" {
				return errors.New("either FILE or --url is required")
			}
			opts, err := flags.options(cmd, a.cfg)
			if err != nil {
				return err
			}

			src := watch.LinkedSource{
				FileName:        name,
				SourceURL:       url,
				DownloadPattern: pattern,
				MergeOptions:    opts,
			}
			if len(args) == 1 {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				src.FilePath = path
				if src.FileName == "" {
					src.FileName = filepath.Base(path)
				}
			}
			if src.FileName == "" {
				src.FileName = url
			}
			if interval <= 0 {
				interval = time.Duration(a.cfg.Watch.IntervalSeconds) * time.Second
			}
			src.SetInterval(interval)

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			w := watch.New(store, a.fileSystem(), watch.WithLogger(a.log))
			linked, err := w.Link(cmd.Context(), src)
			if err != nil {
				return err
			}
			if open && linked.URLBased() {
				if err := w.TriggerDownload(cmd.Context(), linked.ID); err != nil {
					a.log.Warn().Err(err).Msg("failed to open source URL")
				}
			}
			_, err = a.out.Write([]byte(a.styles.RenderSources([]*watch.LinkedSource{linked}, nil, time.Now())))
			return err
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&url, "url", "", "Export URL; changes are read from downloaded copies")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob the downloaded file name must match")
	cmd.Flags().StringVar(&name, "name", "", "Display name (default: file name)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Check interval (default from config, minimum 5s)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the URL in the browser after linking")
	return cmd
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink ID",
		Short: "Stop watching a linked source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := watch.New(store, a.fileSystem(), watch.WithLogger(a.log)).Unlink(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.log.Info().Str("source", args[0]).Msg("source unlinked")
			return nil
		},
	}
}

func newLinksCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List linked sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			sources, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if sources == nil {
				sources = []*watch.LinkedSource{}
			}
			return writeOutput(a.out, format, sources, a.styles.RenderSources(sources, nil, time.Now()))
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}
