package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hupe1980/agoramesh/core"
)

// Log is the single-writer event log of one experiment.
type Log interface {
	// Append serializes e as one line and returns once it is durable.
	Append(e core.Event) error

	// Reader opens the current contents for replay. Callers must close it.
	Reader() (io.ReadCloser, error)

	// Replace atomically swaps the whole contents. On error the previous
	// contents are left untouched.
	Replace(data []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Path returns the log location for an experiment: <dir>/<id>.jsonl.
func Path(dir, experimentID string) string {
	return filepath.Join(dir, experimentID+".jsonl")
}

// Marshal encodes an event as a single newline-terminated line.
func Marshal(e core.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return append(data, '\n'), nil
}
