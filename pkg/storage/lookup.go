package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrAmbiguousArtifact = errors.New("ambiguous artifact")
)

// Find returns the single cleaned artifact of kind k for the race.
// Candidates start with the kind prefix, contain "_<raceID>_" and end with ".pq".
func Find(dir string, k Kind, raceID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("directory %s: %w", dir, ErrArtifactNotFound)
		}
		return "", err
	}
	token := "_" + raceID + "_"
	candidates := make([]string, 0)
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, k.Prefix) &&
			strings.Contains(name, token) && strings.HasSuffix(name, parquetExt) {
			candidates = append(candidates, name)
		}
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("race %s (prefix %q) in %s: %w",
			raceID, k.Prefix, dir, ErrArtifactNotFound)
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		slices.Sort(candidates)
		return "", fmt.Errorf("race %s in %s: %v: %w",
			raceID, dir, candidates, ErrAmbiguousArtifact)
	}
}

// List returns the parsed names of all cleaned artifacts of kind k in dir.
func List(dir string, k Kind) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("directory %s: %w", dir, ErrArtifactNotFound)
		}
		return nil, err
	}
	ret := make([]Info, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), k.Prefix) ||
			!strings.HasSuffix(e.Name(), parquetExt) {
			continue
		}
		if info, ok := ParseName(e.Name()); ok {
			ret = append(ret, info)
		}
	}
	return ret, nil
}
