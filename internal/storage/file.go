package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

// File is a SlotStore keeping one JSON file per session under a directory.
type File struct {
	dir string
}

var _ SlotStore = (*File)(nil)

// NewFile creates the directory if needed and returns a file-backed store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create slot dir %s", dir)
	}
	return &File{dir: dir}, nil
}

// Load returns the payload for key, or ErrNotFound.
func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "read slot %s", key)
	}
	return payload, nil
}

// Save writes the payload atomically via a rename from a temp file, so a
// crashed write never leaves a half-written slot behind.
func (f *File) Save(_ context.Context, key string, payload []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "slot-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp slot")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write slot %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close slot %s", key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "publish slot %s", key)
	}
	return nil
}

// Delete removes the slot file. Absent keys are a no-op.
func (f *File) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete slot %s", key)
	}
	return nil
}

// path maps a session key to a file path. Keys are opaque tokens issued by
// the session manager, but path traversal is rejected regardless.
func (f *File) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", errors.Errorf("invalid slot key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}
