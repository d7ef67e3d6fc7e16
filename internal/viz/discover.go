package viz

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var checkpointRegexp = regexp.MustCompile(`^(?:model|weights)_([0-9]+)\.json\.zlib$`)

// Checkpoint is a parameter snapshot found on disk.
type Checkpoint struct {
	Path  string
	Epoch int
}

// DiscoverCheckpoints returns the checkpoints beneath root ordered by epoch.
func DiscoverCheckpoints(root string) ([]Checkpoint, error) {
	entries := make([]Checkpoint, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := checkpointRegexp.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		epoch, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		entries = append(entries, Checkpoint{Path: path, Epoch: epoch})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover checkpoints: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Epoch != entries[j].Epoch {
			return entries[i].Epoch < entries[j].Epoch
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// LatestCheckpoint returns the highest-epoch checkpoint beneath root.
func LatestCheckpoint(root string) (Checkpoint, bool, error) {
	entries, err := DiscoverCheckpoints(root)
	if err != nil || len(entries) == 0 {
		return Checkpoint{}, false, err
	}
	return entries[len(entries)-1], true, nil
}
