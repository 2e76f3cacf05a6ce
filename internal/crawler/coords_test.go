package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCoordinates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coords.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[55.75, 37.61], [59.93, 30.31], [56.83, 60.6]]`), 0o600))

	coords, err := LoadCoordinates(path)
	require.NoError(t, err)
	require.Len(t, coords, 3)

	// Order is shuffled but the set is preserved.
	seen := make(map[Coordinate]struct{}, len(coords))
	for _, c := range coords {
		seen[c] = struct{}{}
	}
	require.Contains(t, seen, Coordinate{Lat: 55.75, Lon: 37.61})
	require.Contains(t, seen, Coordinate{Lat: 59.93, Lon: 30.31})
	require.Contains(t, seen, Coordinate{Lat: 56.83, Lon: 60.6})
}

func TestLoadCoordinatesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCoordinates(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadCoordinatesMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coords.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))

	_, err := LoadCoordinates(path)
	require.Error(t, err)
}
