// Package payload defines the values carried by queue rows.
//
// A Value is a closed tagged union: Null, String, Int, Float, Bool, List and
// Map. Rows store values as YAML text produced by Encode; Decode reverses it.
// Every scalar is written with its core schema tag in mind, so a string that
// looks like a number ("1") stays a string and booleans stay booleans.
//
// Map keeps insertion order and allows any Value as a key, which mirrors what
// YAML mappings can express.
package payload
