package eventlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/agoramesh/core"
)

// ErrClosed is returned by operations on a closed log.
var ErrClosed = errors.New("event log closed")

// FileLog is a JSONL log on the local filesystem. Every Append is followed by
// fsync so an acknowledged event survives a crash.
type FileLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

var _ Log = (*FileLog)(nil)

// OpenFile opens (creating if needed) the log at path in append mode.
func OpenFile(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileLog{path: path, f: f}, nil
}

// Path returns the file location.
func (l *FileLog) Path() string { return l.path }

// Append implements Log.
func (l *FileLog) Append(e core.Event) error {
	line, err := Marshal(e)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrClosed
	}
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("append %s event: %w", e.Type, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync event log: %w", err)
	}
	return nil
}

// Reader implements Log. It opens an independent read handle.
func (l *FileLog) Reader() (io.ReadCloser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil, ErrClosed
	}
	return os.Open(l.path)
}

// Replace implements Log. The new contents are written to a temp file in the
// same directory, synced and renamed over the log; the append handle is then
// reopened on the new file.
func (l *FileLog) Replace(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return ErrClosed
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail("write temp log", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync temp log", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace event log: %w", err)
	}

	_ = l.f.Close()
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.f = nil
		return fmt.Errorf("reopen event log: %w", err)
	}
	l.f = f
	return nil
}

// Close implements Log. Closing twice is a no-op.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
