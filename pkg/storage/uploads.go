package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/climatehealth/platform/pkg/common/apperr"
	"github.com/climatehealth/platform/pkg/common/logger"
	"github.com/climatehealth/platform/pkg/tabular"
)

// DerivedPrefix marks files produced by analysis runs.
const DerivedPrefix = "ANALYSIS_"

type FileInfo struct {
	Name    string    `json:"filename"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"-"`
}

// UploadStore keeps uploaded and derived CSV files in one flat directory.
type UploadStore struct {
	dir string
}

func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UploadStore{dir: dir}, nil
}

func (s *UploadStore) Dir() string {
	return s.dir
}

// Path resolves a bare file name inside the store.
func (s *UploadStore) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", apperr.New(apperr.KindInvalidInput, "invalid filename %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *UploadStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *UploadStore) Stat(name string) (FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, apperr.New(apperr.KindNotFound, "file not found: %s", name)
		}
		return FileInfo{}, apperr.Wrap(apperr.KindInternal, err, "stat %s", name)
	}
	return FileInfo{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Save stores an uploaded CSV under its base name, replacing any previous upload.
func (s *UploadStore) Save(name string, r io.Reader) (FileInfo, error) {
	if !strings.HasSuffix(name, ".csv") {
		return FileInfo{}, apperr.New(apperr.KindInvalidInput, "only CSV files are allowed")
	}
	path, err := s.Path(name)
	if err != nil {
		return FileInfo{}, err
	}
	file, err := os.Create(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(path)
		return FileInfo{}, fmt.Errorf("write upload: %w", err)
	}
	if err := file.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("close upload: %w", err)
	}

	logger.Log.WithField("path", path).Info("file uploaded")
	return s.Stat(name)
}

// List returns uploaded CSVs, excluding derived ANALYSIS_ artifacts.
func (s *UploadStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || strings.HasPrefix(name, DerivedPrefix) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func (s *UploadStore) ReadFrame(name string) (*tabular.Frame, error) {
	info, err := s.Stat(name)
	if err != nil {
		return nil, err
	}
	frame, err := tabular.ReadFile(info.Path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "cannot parse %s", name)
	}
	return frame, nil
}

func (s *UploadStore) WriteFrame(name string, frame *tabular.Frame) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := frame.WriteFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// Preview returns the header plus the first rows data rows re-encoded as CSV,
// or the raw file when rows <= 0.
func (s *UploadStore) Preview(name string, rows int) (*tabular.Frame, string, error) {
	info, err := s.Stat(name)
	if err != nil {
		return nil, "", err
	}
	if rows <= 0 {
		content, err := os.ReadFile(info.Path)
		if err != nil {
			return nil, "", apperr.Wrap(apperr.KindInternal, err, "read %s", name)
		}
		return nil, string(content), nil
	}
	frame, err := tabular.ReadFileHead(info.Path, rows)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInvalidInput, err, "cannot parse %s", name)
	}
	data, err := frame.CSV()
	if err != nil {
		return nil, "", err
	}
	return frame, data, nil
}
