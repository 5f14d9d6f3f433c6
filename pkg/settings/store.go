package settings

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/threedaro/ptdetail/pkg/errors"
)

// Store persists per-document settings.
type Store interface {
	// Load returns the settings for the document, falling back to
	// Defaults when none were saved yet.
	Load(docKey string) (*Settings, error)
	// Save persists the settings for the document.
	Save(docKey string, s *Settings) error
}

// FileStore keeps one TOML file per document under a directory. Document
// keys are hashed so arbitrary keys map to safe file names.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store in dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create settings directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the document's settings file on top of the defaults, so files
// written by older versions pick up defaults for fields they predate.
func (fs *FileStore) Load(docKey string) (*Settings, error) {
	if err := errors.ValidateDocumentKey(docKey); err != nil {
		return nil, err
	}
	s := Defaults()

	data, err := os.ReadFile(fs.path(docKey))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSettings, err, "read settings for %s", docKey)
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSettings, err, "parse settings for %s", docKey)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save validates and writes the document's settings file.
func (fs *FileStore) Save(docKey string, s *Settings) error {
	if err := errors.ValidateDocumentKey(docKey); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	f, err := os.CreateTemp(fs.dir, "settings-*.toml")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write settings for %s", docKey)
	}
	defer os.Remove(f.Name())

	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "encode settings for %s", docKey)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write settings for %s", docKey)
	}
	if err := os.Rename(f.Name(), fs.path(docKey)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store settings for %s", docKey)
	}
	return nil
}

// path converts a document key to the settings file path.
func (fs *FileStore) path(docKey string) string {
	hash := sha256.Sum256([]byte(docKey))
	return filepath.Join(fs.dir, hex.EncodeToString(hash[:])+".toml")
}

var _ Store = (*FileStore)(nil)
