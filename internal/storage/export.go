package storage

import (
	"encoding/json"
	"io"

	"github.com/petrichorcode/pysic/internal/md"
)

// ExportData is the JSON form of a stored run. Only the section matching the
// run's kind is filled.
type ExportData struct {
	RunMetadata
	Atoms  []AtomResult `json:"atoms,omitempty"`
	Frames []md.Frame   `json:"frames,omitempty"`
}

// Export writes a run as indented JSON.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{RunMetadata: *meta}
	switch meta.Kind {
	case KindMD:
		data.Frames, err = s.LoadFrames(runID)
	default:
		data.Atoms, err = s.LoadAtoms(runID)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
