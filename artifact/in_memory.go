package artifact

import (
	"bytes"
	"slices"
	"sync"
)

type docKey struct {
	experimentID string
	name         string
}

// InMemoryStore is an in-process ArtifactStore for tests and dry runs.
// Documents are cloned on the way in and out so callers cannot alias the
// stored bytes.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[docKey][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[docKey][]byte)}
}

// Save stores or replaces a document.
func (a *InMemoryStore) Save(experimentID, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	a.mu.Lock()
	a.docs[docKey{experimentID, name}] = bytes.Clone(data)
	a.mu.Unlock()
	return nil
}

// Get returns a copy of the stored document or ErrNotFound.
func (a *InMemoryStore) Get(experimentID, name string) ([]byte, error) {
	a.mu.RLock()
	data, ok := a.docs[docKey{experimentID, name}]
	a.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

// List returns the sorted document names of an experiment.
func (a *InMemoryStore) List(experimentID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := []string{}
	for k := range a.docs {
		if k.experimentID == experimentID {
			names = append(names, k.name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Delete removes a document or returns ErrNotFound.
func (a *InMemoryStore) Delete(experimentID, name string) error {
	k := docKey{experimentID, name}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.docs[k]; !ok {
		return ErrNotFound
	}
	delete(a.docs, k)
	return nil
}
