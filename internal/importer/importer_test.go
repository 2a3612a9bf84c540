package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
	"github.com/Vansh-Raja/mremote-sync/internal/mremote"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

const export = `<?xml version="1.0" encoding="utf-8"?>
<Connections Name="Connections">
  <Node Name="Backup" Type="Container">
    <Node Name="nas" Type="Connection" Hostname="nas.lan" Protocol="SSH2" Username="alice@default@nas.lan:ssh:alice" />
  </Node>
  <Node Name="Backup" Type="Connection" Hostname="backup.lan" Protocol="RDP" Username="alice" />
  <Node Name="Router" Type="Connection" Hostname="10.0.0.1" Protocol="Telnet" Username="admin" />
</Connections>`

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newImporter() *Importer {
	return New(WithClock(func() time.Time { return fixedNow }), WithIDGenerator(tree.NewSequenceGenerator("test")))
}

func TestParse(t *testing.T) {
	res, err := newImporter().Parse(context.Background(), []byte(export), "confCons.xml")
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, 3, res.Structure.ConnectionCount)
	assert.Equal(t, 1, res.Structure.FolderCount)
	assert.Len(t, res.Structure.Nodes, 3)
	assert.Len(t, res.Structure.FlatConnections, 3)

	assert.Equal(t, SourceMRemoteNG, res.Metadata.Source)
	assert.Equal(t, "confCons.xml", res.Metadata.OriginalFile)
	assert.Equal(t, fixedNow, res.Metadata.ImportDate)
	assert.Len(t, res.Metadata.ContentHash, 64)

	require.NotEmpty(t, res.TopUsers)
	assert.Equal(t, "alice", res.TopUsers[0].Username)
	assert.Equal(t, 2, res.TopUsers[0].Count)

	router := res.Structure.Nodes[2]
	assert.Equal(t, "Router (Telnet)", router.Label)
	assert.Equal(t, 23, router.Data.SSH.Port)
}

func TestParseFailures(t *testing.T) {
	imp := newImporter()

	res, err := imp.Parse(context.Background(), []byte("<Connections><Node"), "bad.xml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mremote.ErrMalformedXML))
	assert.False(t, res.Success)
	assert.Equal(t, err.Error(), res.Error)
	assert.Nil(t, res.Structure)

	res, err = imp.Parse(context.Background(), []byte("<Other><Thing/></Other>"), "other.xml")
	assert.ErrorIs(t, err, mremote.ErrUnsupportedFormat)
	assert.False(t, res.Success)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.xml")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	res, err := newImporter().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "export.xml", res.Metadata.OriginalFile)

	res, err = newImporter().ParseFile(context.Background(), filepath.Join(dir, "missing.xml"))
	assert.Error(t, err)
	assert.False(t, res.Success)
}

func TestApplyKeepsFolderAndConnectionWithSameLabel(t *testing.T) {
	imp := newImporter()
	res, err := imp.Parse(context.Background(), []byte(export), "")
	require.NoError(t, err)

	merged, summary, err := imp.Apply(nil, res, ApplyOptions{})
	require.NoError(t, err)

	require.Len(t, merged, 3)
	assert.True(t, merged[0].IsFolder())
	assert.Equal(t, "Backup", merged[0].Label)
	assert.False(t, merged[1].IsFolder())
	assert.Equal(t, "Backup", merged[1].Label)
	assert.Equal(t, Summary{Folders: 1, Connections: 3, TargetKey: tree.Root, TargetResolved: true}, summary)
	assert.Equal(t, "Imported 3 connections and 1 folder", summary.Message())
}

func TestApplyRulesFlattenAndWrap(t *testing.T) {
	imp := newImporter()
	res, err := imp.Parse(context.Background(), []byte(export), "")
	require.NoError(t, err)

	existing := []*tree.Node{tree.NewFolder("team", "Team", nil)}
	merged, summary, err := imp.Apply(existing, res, ApplyOptions{
		TargetFolderKey: "team",
		Flatten:         true,
		WrapInContainer: true,
		ContainerLabel:  "From mRemoteNG",
		Rules:           []credentials.Rule{{OriginalUsername: "alice", NewUsername: "bob", NewPassword: "pw", Enabled: true}},
	})
	require.NoError(t, err)

	require.Len(t, merged, 1)
	require.Len(t, merged[0].Children, 1)
	wrapper := merged[0].Children[0]
	assert.Equal(t, "From mRemoteNG", wrapper.Label)
	require.Len(t, wrapper.Children, 3)
	assert.Equal(t, "bob@default@nas.lan:ssh:bob", wrapper.Children[0].Data.SSH.User)
	assert.Equal(t, "bob", wrapper.Children[1].Data.RDP.Username)
	assert.Equal(t, "pw", wrapper.Children[1].Data.RDP.Password)

	assert.Equal(t, 1, summary.Folders)
	assert.Equal(t, 3, summary.Connections)
	assert.Equal(t, 2, summary.UsernamesChanged)
	assert.Equal(t, 2, summary.PasswordsChanged)

	// The parsed result stays reusable.
	assert.Equal(t, "alice", res.Structure.Nodes[1].Data.RDP.Username)
	assert.Empty(t, existing[0].Children)
}

func TestApplyMissingTarget(t *testing.T) {
	imp := newImporter()
	res, err := imp.Parse(context.Background(), []byte(export), "")
	require.NoError(t, err)

	merged, summary, err := imp.Apply(nil, res, ApplyOptions{TargetFolderKey: "gone"})
	require.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.False(t, summary.TargetResolved)
	assert.Contains(t, summary.Message(), "top level")
}

func TestApplyRejectsFailedResult(t *testing.T) {
	_, _, err := newImporter().Apply(nil, Failure(errors.New("boom")), ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoResult)

	_, _, err = newImporter().Apply(nil, nil, ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoResult)
}
