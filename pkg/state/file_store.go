package state

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-decisions"
	"github.com/spf13/afero"
)

// FileSuffix is appended to the client id to name its record file.
const FileSuffix = ".context.json"

// FileStore keeps one indented JSON record per client under a directory.
// Writes go to a temporary file renamed over the record, so readers never
// see a partial document. The file modification time is reported as
// Meta.UpdatedAt.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore stores records in dir on fsys. A nil fsys uses the OS
// filesystem.
func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &FileStore{fs: fsys, dir: filepath.Clean(dir)}
}

// Path returns the record file for ref.
func (s *FileStore) Path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+FileSuffix), nil
}

func (s *FileStore) Load(ctx context.Context, ref Ref) (decisions.ContextRecord, Meta, bool, error) {
	path, err := s.Path(ref)
	if err != nil {
		return decisions.ContextRecord{}, Meta{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("load", path, err)
	}

	info, err := s.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return decisions.ContextRecord{}, Meta{}, false, nil
	}
	if err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("stat", path, err)
	}
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("read", path, err)
	}
	var record decisions.ContextRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return decisions.ContextRecord{}, Meta{}, false, WrapError("decode", path, err)
	}
	return record, MetaFor(record, info.ModTime()), true, nil
}

func (s *FileStore) Save(ctx context.Context, ref Ref, record decisions.ContextRecord, meta Meta) (Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return Meta{}, err
	}
	if err := ctx.Err(); err != nil {
		return Meta{}, WrapError("save", path, err)
	}
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Meta{}, WrapError("encode", path, err)
	}
	payload = append(payload, '\n')

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return Meta{}, WrapError("mkdir", s.dir, err)
	}
	tmp := path + ".tmp"
	if err := s.writeFile(tmp, payload); err != nil {
		_ = s.fs.Remove(tmp)
		return Meta{}, WrapError("write", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return Meta{}, WrapError("rename", path, err)
	}
	return cloneMeta(meta), nil
}

func (s *FileStore) writeFile(path string, payload []byte) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
