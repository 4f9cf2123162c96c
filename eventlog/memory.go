package eventlog

import (
	"bytes"
	"io"
	"sync"

	"github.com/hupe1980/agoramesh/core"
)

// MemoryLog is a volatile Log kept in a byte buffer. It is safe for
// concurrent access and suited for tests and dry runs.
type MemoryLog struct {
	mu  sync.RWMutex
	buf []byte
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog constructs an empty in-memory log.
func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

// NewMemoryLogFrom seeds a log with existing JSONL contents.
func NewMemoryLogFrom(data []byte) *MemoryLog {
	return &MemoryLog{buf: append([]byte(nil), data...)}
}

// Append implements Log.
func (m *MemoryLog) Append(e core.Event) error {
	line, err := Marshal(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.buf = append(m.buf, line...)
	m.mu.Unlock()
	return nil
}

// Reader implements Log. The reader sees a snapshot of the current contents.
func (m *MemoryLog) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.Bytes())), nil
}

// Replace implements Log.
func (m *MemoryLog) Replace(data []byte) error {
	m.mu.Lock()
	m.buf = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Bytes returns a copy of the raw contents.
func (m *MemoryLog) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.buf...)
}

// Close implements Log.
func (m *MemoryLog) Close() error { return nil }
