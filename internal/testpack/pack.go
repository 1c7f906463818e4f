// Package testpack stores test definitions as JSON files for offline use.
package testpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verte-zerg/ieltsmock/internal/apperrors"
	"github.com/verte-zerg/ieltsmock/internal/model"
)

// Pack is a directory of test definitions, one file per test id.
type Pack struct {
	dir string
}

// Open returns a pack rooted at dir. The directory is created on first save.
func Open(dir string) *Pack {
	return &Pack{dir: dir}
}

// Dir returns the pack directory.
func (p *Pack) Dir() string {
	return p.dir
}

func (p *Pack) path(id string) string {
	return filepath.Join(p.dir, fileName(id))
}

func fileName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return safe + ".json"
}

// Save writes the test atomically, replacing an older copy.
func (p *Pack) Save(test model.Test) error {
	if test.ID == "" {
		return fmt.Errorf("test id is required")
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create test pack dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(p.dir, "test-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp test file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	enc := json.NewEncoder(tmpFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(test); err != nil {
		return fmt.Errorf("failed to encode test: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp test file: %w", err)
	}
	if err := os.Rename(tmpPath, p.path(test.ID)); err != nil {
		return fmt.Errorf("failed to move test into pack: %w", err)
	}
	return nil
}

// Load reads one test by id.
func (p *Pack) Load(id string) (model.Test, error) {
	test, err := readTest(p.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Test{}, apperrors.Errorf(apperrors.KindNotFound, "load local test", "test %q is not in the local pack", id)
		}
		return model.Test{}, err
	}
	return test, nil
}

// List reads every test in the pack sorted by section and title.
func (p *Pack) List() ([]model.Test, error) {
	paths, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	tests := make([]model.Test, 0, len(paths))
	for _, path := range paths {
		test, err := readTest(path)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	sort.Slice(tests, func(i, j int) bool {
		if tests[i].Section == tests[j].Section {
			return tests[i].Title < tests[j].Title
		}
		return tests[i].Section < tests[j].Section
	})
	return tests, nil
}

func readTest(path string) (model.Test, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Test{}, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only test file.
			_ = cerr
		}
	}()

	var test model.Test
	if err := json.NewDecoder(file).Decode(&test); err != nil {
		return model.Test{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	test.Normalize()
	return test, nil
}
