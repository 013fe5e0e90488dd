package query

import (
	"fmt"
	"os"
	"path/filepath"
)

// listLibraryDirs returns the UUID directory names under
// dataDir/libraries, each one a provisioned library per
// internal/action.LibraryRegistry's layout. A missing libraries/
// directory (no library created yet) is not an error — it reports zero
// libraries.
func listLibraryDirs(dataDir string) ([]string, error) {
	librariesDir := filepath.Join(dataDir, "libraries")

	entries, err := os.ReadDir(librariesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query: reading libraries directory: %w", err)
	}

	ids := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}

	return ids, nil
}
