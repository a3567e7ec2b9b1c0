package runstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/parser"
	"github.com/KaramelBytes/segmenta-cli/internal/utils"
)

var (
	// ErrNotFound is returned when no stored run matches an id.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous is returned when an id prefix matches several runs.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Store keeps runs as <dir>/<id>/run.json plus clustered.csv.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on first
// save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Save writes the run metadata and its clustered rows atomically.
func (s *Store) Save(r *Run) error {
	if r.ID == "" {
		return errors.New("run id not set")
	}
	dir := filepath.Join(s.dir, r.ID)
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, runFileName), data); err != nil {
		return err
	}
	if r.rows != nil {
		var buf bytes.Buffer
		if err := r.ExportCSV(&buf, nil); err != nil {
			return fmt.Errorf("export rows: %w", err)
		}
		if err := utils.SafeWriteFile(filepath.Join(dir, clusteredFileName), buf.Bytes()); err != nil {
			return err
		}
	}
	r.dir = dir
	return nil
}

// Load reads a run by full id or unique id prefix, including its rows.
func (s *Store) Load(idOrPrefix string) (*Run, error) {
	id, err := s.Resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	r, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}
	rowsPath := filepath.Join(r.dir, clusteredFileName)
	if _, err := os.Stat(rowsPath); err == nil {
		raw, err := parser.LoadFile(rowsPath, parser.Options{Delimiter: ','})
		if err != nil {
			return nil, fmt.Errorf("read clustered rows: %w", err)
		}
		raw.Name = r.Name
		r.rows = raw
	}
	return r, nil
}

// List returns stored runs, newest first. Rows are not loaded.
func (s *Store) List() ([]*Run, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		r, err := s.readMeta(id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// Resolve expands an id prefix to the full id of exactly one stored run.
func (s *Store) Resolve(idOrPrefix string) (string, error) {
	p := strings.TrimSpace(idOrPrefix)
	if p == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	ids, err := s.ids()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if id == p {
			return id, nil
		}
		if strings.HasPrefix(id, p) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d runs", ErrAmbiguous, p, len(matches))
	}
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), runFileName)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) readMeta(id string) (*Run, error) {
	dir := filepath.Join(s.dir, id)
	path := filepath.Join(dir, runFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse run %s: %w", id, err)
	}
	r.dir = dir
	return &r, nil
}
