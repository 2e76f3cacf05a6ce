package crawler

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// Coordinate is one geographic point from the configured coordinate list.
type Coordinate struct {
	Lat float32
	Lon float32
}

// LoadCoordinates reads a JSON array of [lat, lon] pairs and shuffles it so
// the crawl order varies between runs.
func LoadCoordinates(path string) ([]Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coordinates file: %w", err)
	}
	var pairs [][2]float32
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("decode coordinates file: %w", err)
	}
	coords := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = Coordinate{Lat: p[0], Lon: p[1]}
	}
	rand.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})
	return coords, nil
}
