package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

func TestDataVersionIgnoresOwnWrites(t *testing.T) {
	ctx := context.Background()
	path := Path(t.TempDir())

	a, err := Open(path, "pass")
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, "pass")
	require.NoError(t, err)
	defer b.Close()
	// Opening b may itself count as a foreign write.
	_, err = a.changedExternally()
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, &watch.LinkedSource{ID: "x", FileName: "x"}))
	changed, err := a.changedExternally()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, b.Put(ctx, &watch.LinkedSource{ID: "y", FileName: "y"}))
	changed, err = a.changedExternally()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = a.changedExternally()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestChangesSignalsOtherWriters(t *testing.T) {
	ctx := context.Background()
	path := Path(t.TempDir())

	a, err := Open(path, "pass")
	require.NoError(t, err)
	defer a.Close()
	changes := a.Changes()

	b, err := Open(path, "pass")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Put(ctx, &watch.LinkedSource{ID: "y", FileName: "y"}))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestIsDatabaseFile(t *testing.T) {
	s := &Store{path: "/data/sources.db"}
	assert.True(t, s.isDatabaseFile("/data/sources.db"))
	assert.True(t, s.isDatabaseFile("/data/sources.db-journal"))
	assert.False(t, s.isDatabaseFile("/data/config.json"))
}
