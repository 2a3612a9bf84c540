package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/rs/zerolog"

	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

const (
	// TreeFileName is the tracked file holding the application tree.
	TreeFileName = "tree.json"

	currentVersion = 1
	remoteName     = "origin"
)

var signature = object.Signature{Name: "mremote-sync", Email: "snapshot@mremote-sync.local"}

// File is the on-disk format of TreeFileName.
type File struct {
	Version   int          `json:"version"`
	UpdatedAt time.Time    `json:"updated_at"`
	Nodes     []*tree.Node `json:"nodes"`
}

// Entry is one commit of the tree history.
type Entry struct {
	Hash    string    `json:"hash" yaml:"hash"`
	Message string    `json:"message" yaml:"message"`
	When    time.Time `json:"when" yaml:"when"`
}

// Options configure the repository.
type Options struct {
	RemoteURL  string
	Branch     string
	SSHKeyPath string
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Repo keeps the application tree as a JSON file in a git repository, one
// commit per change.
type Repo struct {
	path       string
	remoteURL  string
	branch     string
	sshKeyPath string
	log        zerolog.Logger
	now        func() time.Time
	repo       *git.Repository
}

// Open opens the repository at path, cloning RemoteURL or initializing an
// empty history when none exists yet.
func Open(path string, opts Options) (*Repo, error) {
	r := &Repo{
		path:       path,
		remoteURL:  opts.RemoteURL,
		branch:     opts.Branch,
		sshKeyPath: opts.SSHKeyPath,
		log:        opts.Logger.With().Str("component", "snapshot").Logger(),
		now:        opts.Now,
	}
	if r.branch == "" {
		r.branch = "main"
	}
	if r.now == nil {
		r.now = time.Now
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	repo, err := git.PlainOpen(path)
	if err == nil {
		r.repo = repo
		return r, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	if r.remoteURL != "" {
		err := r.clone()
		if err == nil {
			return r, nil
		}
		if !isEmptyRemote(err) {
			return nil, err
		}
		// Empty remote: start locally and push later.
		if err := resetDir(path); err != nil {
			return nil, err
		}
	}
	if err := r.initLocal(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repo) clone() error {
	auth, err := r.auth()
	if err != nil {
		return err
	}
	repo, err := git.PlainClone(r.path, false, &git.CloneOptions{
		URL:  r.remoteURL,
		Auth: auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone: %w", err)
	}
	r.repo = repo
	return nil
}

func isEmptyRemote(err error) bool {
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "remote repository is empty") ||
		strings.Contains(msg, "reference not found") ||
		strings.Contains(msg, "couldn't find remote ref")
}

func resetDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

func (r *Repo) initLocal() error {
	repo, err := git.PlainInitWithOptions(r.path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(r.branch)},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	r.repo = repo

	if r.remoteURL != "" {
		if _, err := repo.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{r.remoteURL}}); err != nil {
			return fmt.Errorf("failed to add remote: %w", err)
		}
	}

	if _, err := r.Save([]*tree.Node{}, "Initial empty tree"); err != nil {
		return fmt.Errorf("failed to create initial commit: %w", err)
	}
	return nil
}

// auth loads the configured SSH key, or the first default key found.
func (r *Repo) auth() (transport.AuthMethod, error) {
	keyPath := r.sshKeyPath
	if keyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			p := filepath.Join(home, ".ssh", name)
			if _, err := os.Stat(p); err == nil {
				keyPath = p
				break
			}
		}
	}
	if keyPath == "" {
		return nil, fmt.Errorf("no SSH key found")
	}
	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

// FilePath is the working-copy path of the tree file.
func (r *Repo) FilePath() string {
	return filepath.Join(r.path, TreeFileName)
}

// HasRemote reports whether pushes go anywhere.
func (r *Repo) HasRemote() bool {
	return r.remoteURL != ""
}

// Load returns the tree in the working copy. A missing file is an empty tree.
func (r *Repo) Load() ([]*tree.Node, error) {
	raw, err := os.ReadFile(r.FilePath())
	if errors.Is(err, os.ErrNotExist) {
		return []*tree.Node{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tree: %w", err)
	}
	return decode(raw)
}

func decode(raw []byte) ([]*tree.Node, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	if f.Version > currentVersion {
		return nil, fmt.Errorf("tree file version %d is newer than supported version %d", f.Version, currentVersion)
	}
	if f.Nodes == nil {
		f.Nodes = []*tree.Node{}
	}
	return f.Nodes, nil
}

// Save writes nodes and commits them. It reports false when the tree was
// already identical to the last commit.
func (r *Repo) Save(nodes []*tree.Node, message string) (bool, error) {
	if nodes == nil {
		nodes = []*tree.Node{}
	}
	raw, err := json.MarshalIndent(File{Version: currentVersion, UpdatedAt: r.now().UTC(), Nodes: nodes}, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode tree: %w", err)
	}

	// Skip rewriting when only the timestamp would change.
	if current, err := os.ReadFile(r.FilePath()); err == nil {
		if prev, err := decode(current); err == nil && sameNodes(prev, nodes) {
			return false, nil
		}
	}

	tmp := r.FilePath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return false, fmt.Errorf("failed to write tree: %w", err)
	}
	if err := os.Rename(tmp, r.FilePath()); err != nil {
		return false, fmt.Errorf("failed to write tree: %w", err)
	}

	w, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(TreeFileName); err != nil {
		return false, fmt.Errorf("failed to stage tree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}

	sig := signature
	sig.When = r.now()
	if _, err := w.Commit(message, &git.CommitOptions{Author: &sig}); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	r.log.Debug().Str("message", message).Msg("tree snapshot committed")
	return true, nil
}

func sameNodes(a, b []*tree.Node) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(x) == string(y)
}

// History returns up to n commits, newest first. n <= 0 means all.
func (r *Repo) History(n int) ([]Entry, error) {
	iter, err := r.repo.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()

	var out []Entry
	for n <= 0 || len(out) < n {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		out = append(out, Entry{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			When:    c.Author.When,
		})
	}
	return out, nil
}

// At returns the tree as committed in revision rev (a hash or ref name).
func (r *Repo) At(rev string) ([]*tree.Node, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", rev, err)
	}
	f, err := commit.File(TreeFileName)
	if err != nil {
		return nil, fmt.Errorf("tree not found in %s: %w", rev, err)
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return decode([]byte(contents))
}

// Push sends local commits to the remote. Without a remote it does nothing.
func (r *Repo) Push() error {
	if !r.HasRemote() {
		return nil
	}
	auth, err := r.auth()
	if err != nil {
		return err
	}
	err = r.repo.Push(&git.PushOptions{RemoteName: remoteName, Auth: auth})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
