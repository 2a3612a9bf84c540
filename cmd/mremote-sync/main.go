package main

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/config"
	"github.com/Vansh-Raja/mremote-sync/internal/db"
	"github.com/Vansh-Raja/mremote-sync/internal/importer"
	"github.com/Vansh-Raja/mremote-sync/internal/logging"
	"github.com/Vansh-Raja/mremote-sync/internal/securestore"
	"github.com/Vansh-Raja/mremote-sync/internal/snapshot"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
	"github.com/Vansh-Raja/mremote-sync/internal/ui"
	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

var version = "dev"

// passphraseEnv overrides the keyring-held database secret.
const passphraseEnv = config.EnvPrefix + "_PASSPHRASE"

type app struct {
	dataDir string
	verbose bool

	cfg    config.Config
	log    zerolog.Logger
	out    io.Writer
	styles *ui.Styles
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, styles: ui.NewStyles(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "mremote-sync",
		Short:         "Import mRemoteNG exports and keep linked exports in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Data directory (default: user config dir, or $"+config.EnvPrefix+"_DATA_DIR)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newImportCmd(a),
		newUsersCmd(a),
		newTreeCmd(a),
		newLinkCmd(a),
		newUnlinkCmd(a),
		newLinksCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) setup() error {
	var err error
	if a.dataDir != "" {
		if err := os.MkdirAll(a.dataDir, 0700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		a.cfg, err = config.LoadFrom(a.dataDir)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.log = logging.Verbose(logging.New(os.Stderr, a.cfg.Log.Level), a.verbose)
	a.log.Debug().Str("data_dir", a.cfg.DataDir).Msg("configuration loaded")
	return nil
}

func (a *app) importer() *importer.Importer {
	return importer.New(importer.WithLogger(a.log))
}

// openStore opens the linked-source database with the keyring secret.
func (a *app) openStore() (*db.Store, error) {
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		secret, err := securestore.New(a.cfg.DataDir, a.log).GetOrCreateStoreSecret(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to get database secret: %w", err)
		}
		passphrase = secret
	}
	return db.Open(db.Path(a.cfg.DataDir), passphrase, db.WithLogger(a.log))
}

func (a *app) openSnapshot() (*snapshot.Repo, error) {
	return snapshot.Open(a.cfg.SnapshotDir(), snapshot.Options{
		RemoteURL:  a.cfg.Snapshot.RepoURL,
		Branch:     a.cfg.Snapshot.Branch,
		SSHKeyPath: a.cfg.Snapshot.SSHKeyPath,
		Logger:     a.log,
	})
}

func (a *app) fileSystem() watch.OSFileSystem {
	return watch.OSFileSystem{DownloadsDir: a.cfg.Watch.DownloadsDir}
}

// treeRepo is the part of the tree history the commands use.
type treeRepo interface {
	Load() ([]*tree.Node, error)
	Save(nodes []*tree.Node, message string) (bool, error)
	Push() error
}

func (a *app) pushIfConfigured(repo treeRepo) {
	if !a.cfg.Snapshot.AutoPush {
		return
	}
	if err := repo.Push(); err != nil {
		a.log.Warn().Err(err).Msg("failed to push tree history")
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.out, "mremote-sync %s\n", version)
			return err
		},
	}
}
