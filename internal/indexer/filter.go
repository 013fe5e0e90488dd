package indexer

import (
	"path/filepath"
	"strings"
)

// devDirNames are build/dependency directories skipped when SkipDevDirs is
// set, matching the teacher's skip_dirs config-pattern layer in
// internal/sync/filter.go but with a fixed default set suited to this
// domain instead of user-only glob patterns.
var devDirNames = map[string]bool{
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".cache":       true,
	"vendor":       true,
}

// filter decides whether Discovery should descend into or record a given
// filesystem entry. Grounded on the teacher's FilterEngine cascade
// (internal/sync/filter.go), narrowed from OneDrive-naming validation to
// the local-indexing concerns spec.md §4.1 names: hidden files, .git,
// dev directories, and user-supplied ignore globs.
type filter struct {
	skipHidden     bool
	skipSystemDirs bool
	skipDevDirs    bool
	extraIgnores   []string
}

func newFilter(opts Options) *filter {
	return &filter{
		skipHidden:     opts.SkipHidden,
		skipSystemDirs: opts.SkipSystemDirs,
		skipDevDirs:    opts.SkipDevDirs,
		extraIgnores:   opts.ExtraIgnores,
	}
}

// include reports whether name (a single path component, not a full path)
// should be walked/recorded. isDir distinguishes directory-only rules
// (dev dirs) from file-and-directory rules (hidden, extra globs).
func (f *filter) include(name string, isDir bool) bool {
	if f.skipHidden && strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return false
	}

	if f.skipSystemDirs && isDir && name == ".git" {
		return false
	}

	if f.skipDevDirs && isDir && devDirNames[name] {
		return false
	}

	for _, pattern := range f.extraIgnores {
		matched, err := filepath.Match(pattern, name)
		if err == nil && matched {
			return false
		}
	}

	return true
}
