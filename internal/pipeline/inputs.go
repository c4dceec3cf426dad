package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNoMatch marks a pattern that matched no file
	ErrNoMatch = errors.New("no files matched")

	// ErrUnsupported marks a matched file of a type the run does not read
	ErrUnsupported = errors.New("unsupported file type")
)

// IsStepFile reports whether path has a STEP extension
func IsStepFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stp", ".step":
		return true
	}
	return false
}

// IsInterchangeFile reports whether path has the B-Rep interchange extension
func IsInterchangeFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ExpandInputs resolves file names and glob patterns. "**" matches any
// number of directories. Files are returned once each in pattern order;
// patterns without matches and files rejected by accept are reported as
// skipped. A nil accept selects IsStepFile.
func ExpandInputs(patterns []string, accept func(path string) bool) (files []string, skipped []error) {
	if accept == nil {
		accept = IsStepFile
	}
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := glob(pattern)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", pattern, err))
			continue
		}
		if len(matches) == 0 {
			skipped = append(skipped, fmt.Errorf("%s: %w", pattern, ErrNoMatch))
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !accept(m) {
				skipped = append(skipped, fmt.Errorf("%s: %w", m, ErrUnsupported))
				continue
			}
			files = append(files, m)
		}
	}
	return files, skipped
}

func glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}
