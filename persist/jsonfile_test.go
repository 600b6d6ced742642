package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/getlantern/kaleidoscope/routing"
	"github.com/getlantern/kaleidoscope/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFile_RoundTrip(t *testing.T) {
	rt := routing.New()
	ids := make([]state.NodeId, 0, 500)
	for i := 0; i < 500; i++ {
		ids = append(ids, state.NodeId(fmt.Sprintf("#%d", i)))
	}
	rt.AddNeighbors(ids)
	snapshot := rt.Snapshot()

	store := NewJSONFile(filepath.Join(t.TempDir(), "routes.json"))
	require.NoError(t, store.Store(snapshot))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snapshot, loaded))

	// the loaded snapshot must be accepted by the table constructor
	_, err = routing.FromSnapshot(loaded)
	require.NoError(t, err)
}

func TestJSONFile_RoundTripEmpty(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "routes.json"))
	require.NoError(t, store.Store(routing.New().Snapshot()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Routes)
	assert.Empty(t, loaded.OrderedNeighbors)
}

func TestJSONFile_StoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	store := NewJSONFile(path)

	rt := routing.New()
	rt.AddNeighbors([]state.NodeId{"a", "b", "c"})
	require.NoError(t, store.Store(rt.Snapshot()))

	rt.RemoveNeighbor("c")
	require.NoError(t, store.Store(rt.Snapshot()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Routes, 2)
}

func TestJSONFile_MissingFile(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "absent.json"))
	_, err := store.Load()

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJSONFile_MalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewJSONFile(path).Load()
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestJSONFile_InvalidSnapshotSurfacesIOError(t *testing.T) {
	// two self-routes decode fine but do not describe a valid table
	doc := `{"routesMap": {"a": "a", "b": "b"}, "orderedNeighborsList": ["a", "b"]}`
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	_, err := NewJSONFile(path).Load()
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	var invalid *routing.InvalidSnapshotError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "illegal self-route", invalid.Reason)
}

func TestJSONFile_ReferenceFormat(t *testing.T) {
	// the document layout is a compatibility contract
	doc := `{"routesMap": {"a": "b", "b": "a"}, "orderedNeighborsList": ["b", "a"]}`
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	loaded, err := NewJSONFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, map[state.NodeId]state.NodeId{"a": "b", "b": "a"}, loaded.Routes)
	assert.Equal(t, []state.NodeId{"b", "a"}, loaded.OrderedNeighbors)
}
