// Package config loads, normalizes, and validates tmdbtsv configuration data.
//
// It supplies repository defaults (the series and movies relations of the TMDB
// export), expands user paths including tilde shortcuts, reads TOML files, and
// honours environment fallbacks such as TMDBTSV_SINK_DSN. The Config type
// enumerates every record type, the embedded lists extracted from it, and the
// child relations merged across record types, so the pipeline never relies on
// hard-coded field names.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, a single-rune delimiter, and clear validation errors.
package config
