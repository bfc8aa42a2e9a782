// Package file implements the plan and subscription repositories on top of
// definition files kept in a directory.
package file

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
)

var definitionExtensions = []string{".json", ".yaml", ".yml"}

func isDefinition(path string) bool {
	return lo.Contains(definitionExtensions, strings.ToLower(filepath.Ext(path)))
}

// definitionFiles lists the definition files of dir in name order. An empty
// dir yields nothing.
func definitionFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read directory %s", dir).
			Mark(lo.Ternary(os.IsNotExist(err), ierr.ErrNotFound, ierr.ErrSystem))
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isDefinition(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read %s", path).
			WithReportableDetails(map[string]any{
				"path": path,
			}).
			Mark(lo.Ternary(os.IsNotExist(err), ierr.ErrNotFound, ierr.ErrSystem))
	}
	return data, nil
}

func duplicateError(kind, id, first, second string) error {
	return ierr.NewErrorf("%s %q is defined twice", kind, id).
		WithHintf("%s ids must be unique, found %q in %s and %s", kind, id, first, second).
		WithReportableDetails(map[string]any{
			"id":    id,
			"files": []string{first, second},
		}).
		Mark(ierr.ErrValidation)
}
