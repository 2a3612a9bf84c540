package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

func openTemp(t *testing.T) (*Repo, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tree")
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r, err := Open(dir, Options{
		Logger: zerolog.Nop(),
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	return r, dir
}

func sample() []*tree.Node {
	return []*tree.Node{
		tree.NewFolder("f1", "Production", []*tree.Node{
			{Key: "c1", Label: "web", Data: tree.Payload{Type: tree.PayloadSSH, SSH: &tree.SSHData{Host: "10.0.0.5", User: "alice", Port: 22, RemoteFolder: "~"}}},
		}),
	}
}

func TestOpenInitializesEmptyHistory(t *testing.T) {
	r, dir := openTemp(t)

	nodes, err := r.Load()
	require.NoError(t, err)
	assert.Empty(t, nodes)

	history, err := r.History(0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Initial empty tree", history[0].Message)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/main", head.Name().String())
}

func TestSaveLoadAndHistory(t *testing.T) {
	r, dir := openTemp(t)

	changed, err := r.Save(sample(), "Import confCons.xml")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.Save(sample(), "Same again")
	require.NoError(t, err)
	assert.False(t, changed)

	loaded, err := r.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), loaded)

	reopened, err := Open(dir, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	history, err := reopened.History(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Import confCons.xml", history[0].Message)

	first, err := reopened.At(history[1].Hash)
	require.NoError(t, err)
	assert.Empty(t, first)

	latest, err := reopened.At("HEAD")
	require.NoError(t, err)
	assert.Equal(t, sample(), latest)

	limited, err := reopened.History(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestHistoryReportsCorruptObjects(t *testing.T) {
	r, dir := openTemp(t)
	_, err := r.Save(sample(), "Import confCons.xml")
	require.NoError(t, err)

	history, err := r.History(0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	h := history[1].Hash
	require.NoError(t, os.Remove(filepath.Join(dir, ".git", "objects", h[:2], h[2:])))

	reopened, err := Open(dir, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	_, err = reopened.History(0)
	assert.Error(t, err)
}

func TestPushWithoutRemoteIsNoop(t *testing.T) {
	r, _ := openTemp(t)
	assert.False(t, r.HasRemote())
	assert.NoError(t, r.Push())
}

func TestAtUnknownRevision(t *testing.T) {
	r, _ := openTemp(t)
	_, err := r.At("does-not-exist")
	assert.Error(t, err)
}
