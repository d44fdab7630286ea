package migration

import "encoding/json"

// ManifestStore loads and saves manifest.json. Callers serialize read-modify-write sequences.
type ManifestStore struct {
	manifestPath string
	writer       DocumentWriter
}

// NewManifestStore constructs a store for manifestPath.
func NewManifestStore(manifestPath string, writer DocumentWriter) *ManifestStore {
	return &ManifestStore{manifestPath: manifestPath, writer: writer}
}

// Load reads the manifest. Unknown fields are ignored.
func (store *ManifestStore) Load() (Manifest, error) {
	content, readError := readDocument(store.manifestPath)
	if readError != nil {
		return Manifest{}, readError
	}
	return decodeManifest(store.manifestPath, content)
}

// Save replaces the manifest atomically.
func (store *ManifestStore) Save(manifest Manifest) error {
	return writeDocument(store.writer, store.manifestPath, manifest)
}

// snapshot returns the raw manifest bytes so a later failure can restore them exactly.
func (store *ManifestStore) snapshot() ([]byte, error) {
	return readDocument(store.manifestPath)
}

func (store *ManifestStore) restore(content []byte) error {
	if writeError := store.writer.WriteFile(store.manifestPath, content); writeError != nil {
		return writeError
	}
	return nil
}

func decodeManifest(manifestPath string, content []byte) (Manifest, error) {
	if shapeError := requireObject(content); shapeError != nil {
		return Manifest{}, corruptDocument(manifestPath, shapeError)
	}
	var manifest Manifest
	if decodeError := json.Unmarshal(content, &manifest); decodeError != nil {
		return Manifest{}, corruptDocument(manifestPath, decodeError)
	}
	return manifest, nil
}
