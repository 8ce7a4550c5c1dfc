package stats

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

// RunFileName returns the base name of a run's output file.
func RunFileName(prefix string, at time.Time, runID string) string {
	return fmt.Sprintf("%s-%s-%s.csv", prefix, at.UTC().Format("20060102T150405Z"), runID)
}

// LoadFile adds the counts stored at path into into and returns the number of
// rows read. A missing file yields an error satisfying
// errors.Is(err, fs.ErrNotExist); callers that treat it as an empty table
// check for that.
func LoadFile(path string, into Table) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.WrapError(err, errors.CategoryNotFound, "statistics file not found").
				WithContext("file", path).Build()
		}
		return 0, errors.FileSystemError("open statistics file").
			WithContext("file", path).WithCause(err).Build()
	}
	defer func() { _ = f.Close() }()

	return Read(bufio.NewReader(f), path, into)
}

// SaveFile writes t to path atomically: the table goes to a temporary file
// in the same directory which then replaces path.
func SaveFile(path string, t Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileSystemError("create output directory").
			WithContext("path", dir).WithCause(err).Build()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.FileSystemError("create temporary file").
			WithContext("path", dir).WithCause(err).Build()
	}
	tmpPath := tmp.Name()
	fail := func(msg string, cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.FileSystemError(msg).WithContext("file", path).WithCause(cause).Build()
	}

	w := bufio.NewWriter(tmp)
	if err := Write(w, t); err != nil {
		return fail("write statistics", err)
	}
	if err := w.Flush(); err != nil {
		return fail("flush statistics", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync statistics", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.FileSystemError("close temporary file").WithContext("file", path).WithCause(err).Build()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.FileSystemError("replace statistics file").WithContext("file", path).WithCause(err).Build()
	}
	return nil
}

// DataFiles lists the CSV files directly under dir, sorted, skipping hidden
// and temporary files and any path listed in exclude.
func DataFiles(dir string, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.FileSystemError("read data directory").
			WithContext("path", dir).WithCause(err).Build()
	}
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if abs, err := filepath.Abs(e); err == nil {
			skip[abs] = true
		}
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".csv" {
			continue
		}
		path := filepath.Join(dir, name)
		if abs, err := filepath.Abs(path); err == nil && skip[abs] {
			continue
		}
		files = append(files, path)
	}
	slices.Sort(files)
	return files, nil
}

// Consolidate merges every file into one table. The first malformed file
// aborts the merge.
func Consolidate(files []string) (Table, error) {
	out := make(Table)
	for _, f := range files {
		if _, err := LoadFile(f, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
