package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tmdbtsv/internal/config"
)

// SeriesJSON is a two-record series export. Both shows carry the Drama genre
// so a merged genres relation collapses it; the second show has no seasons.
const SeriesJSON = `[
  {
    "id": 1396,
    "name": "Breaking Bad",
    "first_air_date": "2008-01-20",
    "in_production": false,
    "vote_average": 8.9,
    "genres": [{"id": 18, "name": "Drama"}, {"id": 80, "name": "Crime"}],
    "origin_country": ["US"],
    "seasons": [
      {"id": 3572, "season_number": 1, "episode_count": 7},
      {"id": 3573, "season_number": 2, "episode_count": 13}
    ]
  },
  {
    "id": 1399,
    "name": "Game of Thrones",
    "first_air_date": "2011-04-17",
    "in_production": false,
    "vote_average": 8.4,
    "genres": [{"id": 18, "name": "Drama"}],
    "origin_country": ["US", "GB"],
    "seasons": []
  }
]`

// MoviesJSON is a one-record movies export sharing the Drama genre with
// SeriesJSON.
const MoviesJSON = `[
  {
    "id": 550,
    "title": "Fight Club",
    "release_date": "1999-10-15",
    "adult": false,
    "runtime": 139,
    "genres": [{"id": 18, "name": "Drama"}],
    "production_countries": [{"iso_3166_1": "US", "name": "United States of America"}]
  }
]`

// WriteJSON writes content to path, creating parent directories.
func WriteJSON(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSource writes content to the input path of the named source.
func WriteSource(t testing.TB, cfg *config.Config, name, content string) {
	t.Helper()
	WriteJSON(t, SourcePath(t, cfg, name), content)
}

// WriteFixtures writes SeriesJSON and MoviesJSON to the default sources.
func WriteFixtures(t testing.TB, cfg *config.Config) {
	t.Helper()
	WriteSource(t, cfg, "series", SeriesJSON)
	WriteSource(t, cfg, "movies", MoviesJSON)
}

// ReadOutput returns the content of a written relation file.
func ReadOutput(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
