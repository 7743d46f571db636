// Package config loads, normalizes, and validates rowq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ROWQ_DATABASE_DSN. The Config type centralizes every knob the CLI, the
// worker loop, and the sweeper daemon need so the database location and queue
// table are discovered in one pass.
//
// The retention policy (queue.on_processed) is deliberately passed through
// untouched apart from case folding: an unknown value surfaces as a
// configuration error when a claim reaches the processing step, not here.
package config
