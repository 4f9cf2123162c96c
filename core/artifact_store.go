package core

// ArtifactStore persists whole-document artifacts (run summaries) scoped by
// experiment id. Save must be atomic: readers observe either the previous
// document or the new one, never a partial write.
type ArtifactStore interface {
	Save(experimentID, name string, data []byte) error
	Get(experimentID, name string) ([]byte, error)
	List(experimentID string) ([]string, error)
	Delete(experimentID, name string) error
}
