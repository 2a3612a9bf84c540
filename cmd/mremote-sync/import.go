package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/config"
	"github.com/Vansh-Raja/mremote-sync/internal/importer"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

// mergeFlags are the import placement flags shared by import and link.
type mergeFlags struct {
	target         string
	overwrite      bool
	wrap           bool
	containerLabel string
	flat           bool
	rules          []string
}

func (f *mergeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.target, "target", "", "Key of the folder to import into (default: top level)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Replace existing entries with the same name")
	cmd.Flags().BoolVar(&f.wrap, "wrap", false, "Wrap imported entries in a new folder")
	cmd.Flags().StringVar(&f.containerLabel, "container-label", "", "Name of the wrapping folder")
	cmd.Flags().BoolVar(&f.flat, "flat", false, "Import connections without their folders")
	cmd.Flags().StringArrayVar(&f.rules, "rule", nil, "Credential rule old=new[:password] (repeatable)")
}

// options resolves the flags against the configured import defaults.
func (f *mergeFlags) options(cmd *cobra.Command, cfg config.Config) (importer.ApplyOptions, error) {
	rules, err := parseRules(f.rules)
	if err != nil {
		return importer.ApplyOptions{}, err
	}
	opts := importer.ApplyOptions{
		TargetFolderKey: f.target,
		Overwrite:       cfg.Import.Overwrite,
		WrapInContainer: cfg.Import.WrapInContainer,
		ContainerLabel:  cfg.Import.ContainerLabel,
		Flatten:         f.flat,
		Rules:           rules,
	}
	if cmd.Flags().Changed("overwrite") {
		opts.Overwrite = f.overwrite
	}
	if cmd.Flags().Changed("wrap") {
		opts.WrapInContainer = f.wrap
	}
	if strings.TrimSpace(f.containerLabel) != "" {
		opts.ContainerLabel = f.containerLabel
	}
	return opts, nil
}

type importOutput struct {
	Summary  importer.Summary   `json:"summary" yaml:"summary"`
	Metadata *importer.Metadata `json:"metadata" yaml:"metadata"`
	DryRun   bool               `json:"dryRun" yaml:"dryRun"`
	Tree     []*tree.Node       `json:"tree,omitempty" yaml:"tree,omitempty"`
}

func newImportCmd(a *app) *cobra.Command {
	var (
		flags  mergeFlags
		dryRun bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an mRemoteNG export into the tree",
		Long: `Import an mRemoteNG confCons.xml export into the application tree.

Examples:
  mremote-sync import confCons.xml
  mremote-sync import confCons.xml --wrap --overwrite
  mremote-sync import confCons.xml --rule alice=bob --rule admin=:s3cret
  mremote-sync import confCons.xml --dry-run --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			opts, err := flags.options(cmd, a.cfg)
			if err != nil {
				return err
			}
			repo, err := a.openSnapshot()
			if err != nil {
				return err
			}
			data, err := a.fileSystem().ReadFile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			out, err := a.importData(cmd.Context(), repo, data, filepath.Base(args[0]), opts, dryRun)
			if err != nil {
				return err
			}

			var text strings.Builder
			if dryRun {
				text.WriteString(a.styles.RenderTree(out.Tree))
				text.WriteString("\n")
			}
			text.WriteString(a.styles.RenderSummary(out.Summary))
			if !dryRun {
				out.Tree = nil
			}
			return writeOutput(a.out, format, out, text.String())
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the resulting tree without saving it")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}

// importData parses an export and merges it into the current tree,
// committing the result unless dryRun is set.
func (a *app) importData(ctx context.Context, repo treeRepo, data []byte, fileName string, opts importer.ApplyOptions, dryRun bool) (*importOutput, error) {
	imp := a.importer()
	res, err := imp.Parse(ctx, data, fileName)
	if err != nil {
		return nil, err
	}
	existing, err := repo.Load()
	if err != nil {
		return nil, err
	}
	merged, summary, err := imp.Apply(existing, res, opts)
	if err != nil {
		return nil, err
	}

	out := &importOutput{Summary: summary, Metadata: res.Metadata, DryRun: dryRun, Tree: merged}
	if dryRun {
		return out, nil
	}
	if _, err := repo.Save(merged, fmt.Sprintf("Import %s", fileName)); err != nil {
		return nil, fmt.Errorf("failed to save tree: %w", err)
	}
	a.pushIfConfigured(repo)
	a.log.Info().Int("connections", summary.Connections).Int("folders", summary.Folders).Str("file", fileName).Msg("import complete")
	return out, nil
}
