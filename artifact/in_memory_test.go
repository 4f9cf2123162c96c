package artifact

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/core"
)

var (
	_ core.ArtifactStore = (*InMemoryStore)(nil)
	_ core.ArtifactStore = (*FileStore)(nil)
)

func TestInMemoryStore_CopiesDocuments(t *testing.T) {
	s := NewInMemoryStore()
	doc := []byte(`{"rounds_completed":3}`)
	require.NoError(t, s.Save("exp1", "summary.json", doc))
	doc[0] = 'X'

	got, err := s.Get("exp1", "summary.json")
	require.NoError(t, err)
	assert.Equal(t, `{"rounds_completed":3}`, string(got))

	got[0] = 'Y'
	again, _ := s.Get("exp1", "summary.json")
	assert.Equal(t, byte('{'), again[0])
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save("exp1", "b.json", nil))
	require.NoError(t, s.Save("exp1", "a.json", nil))
	require.NoError(t, s.Save("exp2", "c.json", nil))

	names, err := s.List("exp1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names)

	require.NoError(t, s.Delete("exp1", "a.json"))
	assert.ErrorIs(t, s.Delete("exp1", "a.json"), ErrNotFound)
	_, err = s.Get("exp2", "a.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save("exp1", "../escape", nil), ErrInvalidName)

	empty, err := s.List("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryStore_ConcurrentSaves(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Save("exp1", fmt.Sprintf("round_%02d.json", i), []byte{byte(i)})
		}()
	}
	wg.Wait()

	names, _ := s.List("exp1")
	assert.Len(t, names, 20)
}
