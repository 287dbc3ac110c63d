package config

const (
	defaultOutputDir  = "tsv"
	defaultStateDir   = "~/.local/share/tmdbtsv"
	defaultDelimiter  = "\t"
	defaultSeparator  = "."
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultSeriesPath = "series_list.json"
	defaultMoviesPath = "movies_list.json"
)

// Default returns a Config populated with repository defaults. The relation
// set matches the TMDB series and movies exports.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
		},
		Output: Output{
			Delimiter: defaultDelimiter,
		},
		Sources: []Source{
			{
				Name: "series",
				Path: defaultSeriesPath,
				Lists: []string{
					"created_by",
					"episode_run_time",
					"genres",
					"languages",
					"networks",
					"origin_country",
					"production_companies",
					"seasons",
				},
			},
			{
				Name: "movies",
				Path: defaultMoviesPath,
				Lists: []string{
					"genres",
					"production_companies",
					"production_countries",
					"spoken_languages",
				},
			},
		},
		Merges: []Merge{
			{Relation: "genres", From: []string{"series.genres", "movies.genres"}},
			{Relation: "production_companies", From: []string{"series.production_companies", "movies.production_companies"}},
		},
		Flatten: Flatten{
			Separator: defaultSeparator,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
