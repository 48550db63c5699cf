package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Artifacts is one run's output directory. Runs never share directories, so
// nothing here is state carried between invocations.
type Artifacts struct {
	RunID string
	Dir   string
}

// NewArtifacts creates the per-run directory under root, named by timestamp
// and a short run ID.
func NewArtifacts(root string, now time.Time) (*Artifacts, error) {
	runID := uuid.New().String()[:8]
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", now.Format("20060102_150405"), runID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create artifact dir %s: %w", dir, err)
	}
	return &Artifacts{RunID: runID, Dir: dir}, nil
}

// WriteJSON writes v indented under the run directory.
func (a *Artifacts) WriteJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", name, err)
	}
	path := filepath.Join(a.Dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// Path returns the full path for a named artifact file.
func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.Dir, name)
}
