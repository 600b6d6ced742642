package persist

import (
	"encoding/json"
	"os"

	"github.com/getlantern/kaleidoscope/routing"
	"github.com/getlantern/kaleidoscope/state"
)

// JSONFile is a Mechanism backed by a single JSON file. The document carries
// two fields, a routesMap object of stringified node ids and an
// orderedNeighborsList array:
//
//	{"routesMap": {"a": "b", "b": "a"}, "orderedNeighborsList": ["b", "a"]}
//
// Loaded documents are validated before a snapshot is returned; a document
// that does not describe a valid table state surfaces an *IOError.
type JSONFile struct {
	Path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

type snapshotDoc struct {
	RoutesMap            map[string]string `json:"routesMap"`
	OrderedNeighborsList []string          `json:"orderedNeighborsList"`
}

// Store writes the snapshot to the file, replacing any previous contents.
func (j *JSONFile) Store(snapshot routing.Snapshot) error {
	doc := snapshotDoc{
		RoutesMap:            make(map[string]string, len(snapshot.Routes)),
		OrderedNeighborsList: make([]string, 0, len(snapshot.OrderedNeighbors)),
	}
	for k, v := range snapshot.Routes {
		doc.RoutesMap[k.String()] = v.String()
	}
	for _, n := range snapshot.OrderedNeighbors {
		doc.OrderedNeighborsList = append(doc.OrderedNeighborsList, n.String())
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &IOError{err}
	}
	if err := os.WriteFile(j.Path, data, 0600); err != nil {
		return &IOError{err}
	}
	return nil
}

// Load reads and validates a snapshot from the file.
func (j *JSONFile) Load() (routing.Snapshot, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return routing.Snapshot{}, &IOError{err}
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return routing.Snapshot{}, &IOError{err}
	}

	snapshot := routing.Snapshot{
		Routes:           make(map[state.NodeId]state.NodeId, len(doc.RoutesMap)),
		OrderedNeighbors: make([]state.NodeId, 0, len(doc.OrderedNeighborsList)),
	}
	for k, v := range doc.RoutesMap {
		snapshot.Routes[state.NodeId(k)] = state.NodeId(v)
	}
	for _, n := range doc.OrderedNeighborsList {
		snapshot.OrderedNeighbors = append(snapshot.OrderedNeighbors, state.NodeId(n))
	}

	if err := routing.ValidateSnapshot(snapshot); err != nil {
		return routing.Snapshot{}, &IOError{err}
	}
	return snapshot, nil
}
